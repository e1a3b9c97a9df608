// Package server exposes analysis sessions to the browser: an embedded page
// plus a small JSON API, one session per cookie.
package server

import (
	"context"
	"crypto/rand"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"

	"github.com/KaramelBytes/datapilot-cli/internal/session"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

// SessionCookie carries the session id.
const SessionCookie = "datapilot_session"

// Config controls the HTTP surface.
type Config struct {
	Addr string
	// CSRFKey must be at least 32 bytes. Empty generates a per-process key.
	CSRFKey string
	// Secure marks cookies Secure and makes CSRF checks expect TLS.
	Secure      bool
	DisableCSRF bool
	// MaxUploadBytes caps multipart bodies.
	MaxUploadBytes int64
	DefaultPersona string
	// WriteTimeout must outlast a model call.
	WriteTimeout time.Duration
}

// Server routes requests to sessions held in a Store.
type Server struct {
	cfg    Config
	store  *session.Store
	page   *template.Template
	router chi.Router
}

// New builds the router. It fails on an unusable CSRF key or a broken template.
func New(store *session.Store, cfg Config) (*Server, error) {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	page, err := template.ParseFS(templateFS, "templates/index.gohtml")
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	s := &Server{cfg: cfg, store: store, page: page}

	var protect func(http.Handler) http.Handler
	if !cfg.DisableCSRF {
		key, err := csrfKey(cfg.CSRFKey)
		if err != nil {
			return nil, err
		}
		protect = csrf.Protect(key,
			csrf.Secure(cfg.Secure),
			csrf.Path("/"),
			csrf.SameSite(csrf.SameSiteLaxMode),
			csrf.ErrorHandler(http.HandlerFunc(csrfFailed)),
		)
	}
	s.router = s.routes(protect)
	return s, nil
}

func csrfKey(configured string) ([]byte, error) {
	if configured == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate csrf key: %w", err)
		}
		return key, nil
	}
	if len(configured) < 32 {
		return nil, errors.New("csrf_key must be at least 32 characters long")
	}
	return []byte(configured), nil
}

func (s *Server) routes(protect func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if protect != nil {
			if !s.cfg.Secure {
				r.Use(plaintext)
			}
			r.Use(protect)
			r.Use(exposeToken)
		}
		r.Use(s.withSession)

		r.Get("/", s.handleIndex)
		r.Route("/api", func(r chi.Router) {
			r.Get("/session", s.handleView)
			r.Post("/upload", s.handleUpload)
			r.Put("/input", s.handleInput)

			r.Get("/config", s.handleConfig)
			r.Post("/config/edit", s.handleConfigEdit)
			r.Put("/config/pending", s.handleConfigStage)
			r.Post("/config/apply", s.handleConfigApply)
			r.Post("/config/cancel", s.handleConfigCancel)

			r.Get("/personas", s.handlePersonas)
			r.Post("/analyze", s.handleAnalyze)
			r.Post("/chat", s.handleChat)
			r.Get("/messages", s.handleMessages)
			r.Post("/reset", s.handleReset)
			r.Get("/export.pdf", s.handleExport)
		})
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is done, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", s.cfg.Addr, "csrf", !s.cfg.DisableCSRF)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
