package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)

	if s.metrics.Enabled && s.gatherer != nil {
		r.Handle(s.metricsPath(), promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/telemetry", s.handleTelemetry)
		r.With(limitBody(maxCommandBodySize)).Post("/commands", s.handleCommand)
		r.Get("/journal", s.handleJournal)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

func (s *Server) metricsPath() string {
	if s.metrics.Path == "" {
		return "/metrics"
	}
	return s.metrics.Path
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"mqtt":    s.bridge.Connection().State().String(),
	})
}
