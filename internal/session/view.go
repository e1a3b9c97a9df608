package session

import (
	"github.com/KaramelBytes/datapilot-cli/internal/analysis"
	"github.com/KaramelBytes/datapilot-cli/internal/csvsample"
)

// View is a read-only snapshot for rendering. Result and Sample are shared
// with the session and must not be modified.
type View struct {
	ID       string            `json:"id"`
	FileName string            `json:"fileName,omitempty"`
	Sample   *csvsample.Sample `json:"sample,omitempty"`
	Input    string            `json:"input"`
	State    LoadingState      `json:"state"`
	Busy     bool              `json:"busy"`
	Result   *analysis.Result  `json:"result,omitempty"`
	Messages []Message         `json:"messages"`
	Banner   string            `json:"banner,omitempty"`
	Notice   string            `json:"notice,omitempty"`
	Active   csvsample.Config  `json:"config"`
	Pending  *csvsample.Config `json:"pendingConfig,omitempty"`
	Empty    bool              `json:"empty"`
}

// ShowResult reports whether the result panel should be rendered.
func (v View) ShowResult() bool {
	return v.Result != nil && v.State == StateComplete
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		ID:       s.ID,
		Sample:   s.sample,
		Input:    s.input,
		State:    s.state,
		Busy:     s.busy,
		Result:   s.result,
		Messages: append([]Message{}, s.messages...),
		Banner:   s.banner,
		Active:   s.active,
		Pending:  copyConfig(s.pending),
	}
	if s.file != nil {
		v.FileName = s.file.name
	}
	if s.result != nil && s.result.Fallback {
		v.Notice = NoticeFallback
	}
	// Mirrors the page's empty hint: nothing loaded, nothing running, no error.
	v.Empty = s.result == nil && s.state != StateAnalyzing && s.banner == "" && (s.sample == nil || len(s.sample.Rows) == 0)
	return v
}
