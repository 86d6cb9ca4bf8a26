// Package server exposes the status and alert-feed HTTP surface: health and
// job-ledger endpoints for operators, and the dashboard-facing websocket for
// live confluence alerts: a chi router with cors middleware, request
// logging middleware, and a writeJSON helper, scoped to this module's much
// smaller operational surface — no SPA hosting, no trigger-by-POST job
// surface, since nothing here needs an operator to kick off an out-of-band
// run.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/coinwatch/confluence/internal/di"
	"github.com/coinwatch/confluence/internal/reliability"
)

// Server is the status/alert-feed HTTP server.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	container *di.Container
}

// New builds a Server bound to container's scheduler, health tracker, and
// alert broadcaster. It does not start listening; call ListenAndServe.
func New(container *di.Container, log zerolog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       log.With().Str("component", "server").Logger(),
		container: container,
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// A 30s request timeout suits the JSON status endpoints; the websocket
	// route is long-lived by design and must stay outside it.
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/healthz", s.handleHealthz)
		r.Get("/status", s.handleStatus)
	})
	s.router.Get("/alerts/stream", container.Broadcaster.ServeHTTP)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", container.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // the websocket route needs an unbounded write deadline
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// ListenAndServe starts the HTTP server, blocking until it stops.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("status server listening")
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// handleHealthz returns 200 if no component is currently marked degraded,
// 503 otherwise — the liveness signal spec.md §7 expects an operator or
// orchestrator to poll.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.container.Health.AnyDegraded() {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
}

// statusResponse is the /status payload: component health, instantaneous
// system stats, and the scheduler's recent job-run ledger.
type statusResponse struct {
	Components []reliability.ComponentHealth `json:"components"`
	System     reliability.SystemStats       `json:"system"`
	Jobs       []jobRunView                  `json:"jobs"`
}

type jobRunView struct {
	Job        string    `json:"job"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Overran    bool      `json:"overran"`
	Err        string    `json:"error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ledger := s.container.Scheduler.Ledger()
	jobs := make([]jobRunView, len(ledger))
	for i, rec := range ledger {
		jobs[i] = jobRunView{
			Job: rec.Job, StartedAt: rec.StartedAt,
			DurationMS: rec.Duration.Milliseconds(), Overran: rec.Overran, Err: rec.Err,
		}
	}

	resp := statusResponse{
		Components: s.container.Health.Snapshot(),
		System:     reliability.ReadSystemStats(),
		Jobs:       jobs,
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}
