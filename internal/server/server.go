package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/attestbot/internal/forge"
	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
	"git.home.luguber.info/inful/attestbot/internal/logfields"
	"git.home.luguber.info/inful/attestbot/internal/metrics"
	"git.home.luguber.info/inful/attestbot/internal/quota"
	"git.home.luguber.info/inful/attestbot/internal/runner"
)

// Deps wires the HTTP service surface.
type Deps struct {
	Registry   *forge.Registry
	Identities runner.IdentitySource
	Attested   runner.AttestedSource
	Submitter  runner.CommitSubmitter
	Limiter    *quota.Limiter
	Store      runner.Store
	Registrar  *prom.Registry
	Version    string
}

// Server exposes the on-demand attestation endpoint plus the monitoring
// surface. Metrics live on a separate admin listener so the operator port
// can stay firewalled off from the API port.
type Server struct {
	deps         Deps
	errorAdapter *errors.HTTPErrorAdapter
	httpServer   *http.Server
	adminServer  *http.Server
	startTime    time.Time
}

// New creates a server; Start binds it.
func New(deps Deps) *Server {
	return &Server{
		deps:         deps,
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
		startTime:    time.Now(),
	}
}

// Handler builds the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/attest", s.handleAttest)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /status", s.handleStatus)
	return chain(slog.Default(), s.errorAdapter)(mux)
}

// AdminHandler builds the admin surface: metrics plus a health probe.
func (s *Server) AdminHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.HTTPHandler(s.deps.Registrar))
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return mux
}

// Start binds the listener and serves until Stop.
func (s *Server) Start(port int) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// StartAdmin binds the admin listener and serves until Stop.
func (s *Server) StartAdmin(port int) error {
	s.adminServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.AdminHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("admin server listening", slog.String("addr", s.adminServer.Addr))
	if err := s.adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("admin server: %w", err)
	}
	return nil
}

// Stop shuts both listeners down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	var firstErr error
	for _, srv := range []*http.Server{s.httpServer, s.adminServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

// statusResponse is the operator-facing snapshot.
type statusResponse struct {
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime"`
	Checkpoint *time.Time        `json:"checkpoint,omitempty"`
	Domains    []string          `json:"domains"`
	LastPass   *runner.PassStats `json:"last_pass,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Version: s.deps.Version,
		Uptime:  time.Since(s.startTime).String(),
		Domains: s.deps.Registry.Domains(),
	}

	if checkpoint, err := s.deps.Store.Checkpoint(r.Context()); err == nil && !checkpoint.IsZero() {
		resp.Checkpoint = &checkpoint
	}
	if last, err := s.deps.Store.LastPass(r.Context()); err == nil {
		resp.LastPass = last
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("writing response failed", logfields.Error(err))
	}
}
