package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/gorilla/csrf"

	"github.com/KaramelBytes/datapilot-cli/internal/analysis"
	"github.com/KaramelBytes/datapilot-cli/internal/csvsample"
	"github.com/KaramelBytes/datapilot-cli/internal/export"
	"github.com/KaramelBytes/datapilot-cli/internal/session"
)

// Messages for failures that do not leave a banner on the session.
const (
	msgBusy       = "A request is already in progress."
	msgNoResult   = "Run an analysis before asking questions or exporting."
	msgBadRequest = "The request could not be understood."
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return false
	}
	return true
}

type pageData struct {
	CSRFToken      string
	Personas       []string
	DefaultPersona string
	Delimiters     []csvsample.Delimiter
	Encodings      []csvsample.Encoding
	MaxUploadMB    int64
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		CSRFToken:      csrf.Token(r),
		Personas:       analysis.Personas,
		DefaultPersona: s.defaultPersona(),
		Delimiters: []csvsample.Delimiter{
			csvsample.DelimiterAuto, csvsample.DelimiterComma, csvsample.DelimiterSemicolon,
			csvsample.DelimiterTab, csvsample.DelimiterPipe,
		},
		Encodings:   csvsample.Encodings,
		MaxUploadMB: s.cfg.MaxUploadBytes >> 20,
	}
	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		slog.Error("render page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) defaultPersona() string {
	if s.cfg.DefaultPersona != "" {
		return s.cfg.DefaultPersona
	}
	return analysis.DefaultPersona
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.store.Len()})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentSession(r).View())
}

// failWithBanner reports err using the banner the session recorded for it.
func failWithBanner(w http.ResponseWriter, sess *session.Session, status int, fallback string) {
	msg := sess.View().Banner
	if msg == "" {
		msg = fallback
	}
	writeError(w, status, msg)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	src := session.Source(r.URL.Query().Get("source"))
	switch src {
	case "":
		src = session.SourcePicker
	case session.SourcePicker, session.SourceDrop:
	default:
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("The file is larger than the %d MB upload limit.", s.cfg.MaxUploadBytes>>20))
			return
		}
		sess.ReadFailed(err)
		failWithBanner(w, sess, http.StatusBadRequest, session.BannerReadFailed)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		sess.ReadFailed(err)
		failWithBanner(w, sess, http.StatusBadRequest, session.BannerReadFailed)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		sess.ReadFailed(err)
		failWithBanner(w, sess, http.StatusBadRequest, session.BannerReadFailed)
		return
	}

	if err := sess.SelectFile(hdr.Filename, data, src); err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, session.ErrNotCSV) {
			status = http.StatusUnsupportedMediaType
		}
		failWithBanner(w, sess, status, session.BannerReadFailed)
		return
	}
	slog.Info("file selected", "session", sess.ID, "file", hdr.Filename, "bytes", len(data), "source", src)
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	sess := currentSession(r)
	sess.SetInput(body.Text)
	writeJSON(w, http.StatusOK, sess.View())
}

type configView struct {
	Active  csvsample.Config  `json:"active"`
	Pending *csvsample.Config `json:"pending,omitempty"`
}

func configOf(sess *session.Session) configView {
	return configView{Active: sess.ActiveConfig(), Pending: sess.PendingConfig()}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, configOf(currentSession(r)))
}

func (s *Server) handleConfigEdit(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	sess.EditConfig()
	writeJSON(w, http.StatusOK, configOf(sess))
}

func (s *Server) handleConfigStage(w http.ResponseWriter, r *http.Request) {
	var c csvsample.Config
	if !decodeJSON(w, r, &c) {
		return
	}
	sess := currentSession(r)
	if _, err := sess.StageConfig(c); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, configOf(sess))
}

func (s *Server) handleConfigApply(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if err := sess.ApplyConfig(); err != nil {
		failWithBanner(w, sess, http.StatusUnprocessableEntity, session.BannerReadFailed)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleConfigCancel(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	sess.CancelConfig()
	writeJSON(w, http.StatusOK, configOf(sess))
}

func (s *Server) handlePersonas(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"personas": analysis.Personas, "default": s.defaultPersona()})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Persona string `json:"persona"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Persona == "" {
		body.Persona = s.defaultPersona()
	}
	sess := currentSession(r)
	if err := sess.Analyze(r.Context(), body.Persona); err != nil {
		if errors.Is(err, session.ErrBusy) {
			writeError(w, http.StatusConflict, msgBusy)
			return
		}
		failWithBanner(w, sess, http.StatusBadGateway, session.BannerAnalyzeFailed)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	sess := currentSession(r)
	if _, err := sess.Chat(r.Context(), body.Message); err != nil {
		switch {
		case errors.Is(err, session.ErrBusy):
			writeError(w, http.StatusConflict, msgBusy)
		case errors.Is(err, session.ErrNoResult):
			writeError(w, http.StatusConflict, msgNoResult)
		default:
			writeError(w, http.StatusInternalServerError, session.BannerChatFailed)
		}
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"messages": currentSession(r).Messages()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	sess.Reset()
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	v := sess.View()
	if v.Result == nil {
		writeError(w, http.StatusConflict, msgNoResult)
		return
	}
	var buf bytes.Buffer
	if err := export.WritePDF(&buf, v.Result, v.Sample); err != nil {
		sess.ExportFailed(err)
		writeError(w, http.StatusInternalServerError, session.BannerExportFailed)
		return
	}
	name := export.Filename(v.Result.InferredType)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
	slog.Info("pdf exported", "session", sess.ID, "file", name, "bytes", buf.Len())
}
