// Package server exposes the conversational boundary over HTTP: one
// user turn in, one response out, plus session lifecycle endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/dqagent/orchestrator"
	"github.com/c360studio/dqagent/session"
)

// Server handles the HTTP conversational surface.
type Server struct {
	orch     *orchestrator.Orchestrator
	sessions *session.Manager
	logger   *slog.Logger
	http     *http.Server
}

// New creates a server listening on addr.
func New(addr string, orch *orchestrator.Orchestrator, sessions *session.Manager, logger *slog.Logger) *Server {
	s := &Server{
		orch:     orch,
		sessions: sessions,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", s.handleStartSession)
		r.Post("/{sessionID}/turns", s.handleTurn)
		r.Delete("/{sessionID}", s.handleEndSession)
	})

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe runs the server until Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", "addr", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startSessionResponse struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Start(r.Context())
	if err != nil {
		s.logger.Error("Failed to start session", "error", err)
		writeError(w, http.StatusBadGateway, "could not start a session: warehouse schema is unavailable")
		return
	}
	writeJSON(w, http.StatusCreated, startSessionResponse{SessionID: sess.ID})
}

type turnRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := s.orch.HandleTurn(r.Context(), sessionID, req.Text)
	if err != nil {
		if errors.Is(err, orchestrator.ErrUnknownSession) {
			writeError(w, http.StatusNotFound, "unknown session")
			return
		}
		s.logger.Error("Turn handling failed", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.End(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
