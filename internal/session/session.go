// Package session holds the per-user state of the analysis page: the staged
// CSV config, the selected file and its preview, the prompt input, the
// loading state, the latest result and the follow-up chat log.
package session

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/datapilot-cli/internal/analysis"
	"github.com/KaramelBytes/datapilot-cli/internal/csvsample"
)

// LoadingState tracks the analysis request lifecycle.
type LoadingState string

const (
	StateIdle      LoadingState = "IDLE"
	StateAnalyzing LoadingState = "ANALYZING"
	StateComplete  LoadingState = "COMPLETE"
	StateError     LoadingState = "ERROR"
)

// User-facing banner texts.
const (
	BannerEmptyFile     = "The uploaded CSV file appears to be empty."
	BannerReadFailed    = "Failed to read the file."
	BannerNotCSV        = "Only .csv files can be dropped here."
	BannerAnalyzeFailed = "Failed to generate analysis. Please check your API key and try again."
	BannerChatFailed    = "Sorry, I encountered an error while processing your request."
	BannerExportFailed  = "Failed to export PDF."

	NoticeFallback = "The model response could not be parsed. The values shown are placeholders."
)

// Source says how a file reached the session.
type Source string

const (
	SourcePicker Source = "picker"
	SourceDrop   Source = "drop"
)

var (
	ErrNotCSV   = errors.New("dropped file is not a .csv file")
	ErrBusy     = errors.New("a request is already in progress")
	ErrNoResult = errors.New("no analysis result yet")
)

// Analyzer is the model boundary a session drives.
type Analyzer interface {
	Analyze(ctx context.Context, input, persona string) (*analysis.Result, error)
	Chat(ctx context.Context, r *analysis.Result, message string) (string, error)
}

// Role of a chat message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the chat log.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type file struct {
	name string
	data []byte
}

// Session is safe for concurrent use. The lock is never held across a model call.
type Session struct {
	ID string

	analyzer Analyzer
	now      func() time.Time

	mu       sync.Mutex
	active   csvsample.Config
	pending  *csvsample.Config
	file     *file
	sample   *csvsample.Sample
	input    string
	state    LoadingState
	result   *analysis.Result
	messages []Message
	banner   string
	busy     bool
	// gen changes on Reset so late replies from an earlier request are dropped.
	gen uint64
}

// New returns an idle session using cfg as the active config.
func New(id string, a Analyzer, cfg csvsample.Config) *Session {
	return &Session{
		ID:       id,
		analyzer: a,
		now:      time.Now,
		active:   cfg,
		state:    StateIdle,
	}
}

// ActiveConfig returns the config used for parsing.
func (s *Session) ActiveConfig() csvsample.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// PendingConfig returns the staged config, or nil when no edit is open.
func (s *Session) PendingConfig() *csvsample.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyConfig(s.pending)
}

// EditConfig opens a pending copy of the active config, or returns the one
// already open.
func (s *Session) EditConfig() csvsample.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		c := s.active
		s.pending = &c
	}
	return *s.pending
}

// StageConfig replaces the pending copy, opening an edit if needed. The
// active config is not touched.
func (s *Session) StageConfig(c csvsample.Config) (csvsample.Config, error) {
	v, err := c.Validate()
	if err != nil {
		return c, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &v
	return v, nil
}

// ApplyConfig commits the pending config and re-parses the selected file from
// scratch. Without a pending edit it does nothing.
func (s *Session) ApplyConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	s.active = *s.pending
	s.pending = nil
	if s.file == nil {
		return nil
	}
	return s.parseLocked()
}

// CancelConfig discards the pending config.
func (s *Session) CancelConfig() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// SelectFile replaces the selected file and parses it with the active
// config. Files arriving by drop must carry a .csv suffix.
func (s *Session) SelectFile(name string, data []byte, src Source) error {
	if src == SourceDrop && !strings.EqualFold(filepath.Ext(name), ".csv") {
		s.mu.Lock()
		s.banner = BannerNotCSV
		s.mu.Unlock()
		return ErrNotCSV
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file = &file{name: name, data: data}
	s.sample = nil
	return s.parseLocked()
}

// ReadFailed records that the uploaded file could not be read at all.
func (s *Session) ReadFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slog.Warn("upload read failed", "session", s.ID, "error", err)
	s.banner = BannerReadFailed
}

func (s *Session) parseLocked() error {
	sample, err := csvsample.Parse(s.file.data, s.active)
	if err != nil {
		s.sample = nil
		s.input = ""
		if errors.Is(err, csvsample.ErrEmptyFile) {
			s.banner = BannerEmptyFile
		} else {
			slog.Warn("csv parse failed", "session", s.ID, "file", s.file.name, "error", err)
			s.banner = BannerReadFailed
		}
		return err
	}
	s.sample = sample
	s.input = sample.Prompt
	s.banner = ""
	slog.Debug("csv parsed", "session", s.ID, "file", s.file.name, "delimiter", sample.Delimiter, "rows", len(sample.Rows))
	return nil
}

// SetInput replaces the prompt input with pasted text.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

// Analyze sends the current input. Blank input is a no-op. While a request
// is in flight further calls fail with ErrBusy without reaching the model.
func (s *Session) Analyze(ctx context.Context, persona string) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	input := s.input
	if strings.TrimSpace(input) == "" {
		s.mu.Unlock()
		return nil
	}
	s.busy = true
	s.state = StateAnalyzing
	s.banner = ""
	s.result = nil
	gen := s.gen
	s.mu.Unlock()

	res, err := s.analyzer.Analyze(ctx, input, persona)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil
	}
	s.busy = false
	if err != nil {
		slog.Error("analysis failed", "session", s.ID, "error", err)
		s.state = StateError
		s.banner = BannerAnalyzeFailed
		return err
	}
	s.result = res
	s.state = StateComplete
	s.messages = nil
	return nil
}

// Chat appends the user's question and the assistant's answer. A model
// failure becomes an apology message rather than an error.
func (s *Session) Chat(ctx context.Context, text string) (Message, error) {
	s.mu.Lock()
	if s.result == nil {
		s.mu.Unlock()
		return Message{}, ErrNoResult
	}
	if s.busy {
		s.mu.Unlock()
		return Message{}, ErrBusy
	}
	if strings.TrimSpace(text) == "" {
		s.mu.Unlock()
		return Message{}, nil
	}
	s.messages = append(s.messages, Message{Role: RoleUser, Content: text, Timestamp: s.now()})
	s.busy = true
	res := s.result
	gen := s.gen
	s.mu.Unlock()

	answer, err := s.analyzer.Chat(ctx, res, text)
	if err != nil {
		slog.Error("chat failed", "session", s.ID, "error", err)
		answer = BannerChatFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	reply := Message{Role: RoleAssistant, Content: answer, Timestamp: s.now()}
	if gen != s.gen {
		return reply, nil
	}
	s.busy = false
	s.messages = append(s.messages, reply)
	return reply, nil
}

// ExportFailed records a failed PDF export.
func (s *Session) ExportFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slog.Error("pdf export failed", "session", s.ID, "error", err)
	s.banner = BannerExportFailed
}

// Reset clears everything but the active config.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.pending = nil
	s.file = nil
	s.sample = nil
	s.input = ""
	s.state = StateIdle
	s.result = nil
	s.messages = nil
	s.banner = ""
	s.busy = false
}

// Messages returns a copy of the chat log.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func copyConfig(c *csvsample.Config) *csvsample.Config {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}
