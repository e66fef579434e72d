package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/space-weather-forecaster/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReportProvider returns the latest completed run, or nil before the first.
type ReportProvider interface {
	Latest() *pipeline.Report
}

// Server exposes health, readiness, metrics and read-only report endpoints.
type Server struct {
	httpServer *http.Server
	reports    ReportProvider
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api/v1 report routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, reports ReportProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		reports: reports,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/predictions", s.withReport(func(r *pipeline.Report) any {
		return map[string]any{"generated_at": r.GeneratedAt, "predictions": r.Predictions}
	}))
	mux.HandleFunc("GET /api/v1/forecast", s.withReport(func(r *pipeline.Report) any {
		return map[string]any{"generated_at": r.GeneratedAt, "forecast": r.Forecast}
	}))
	mux.HandleFunc("GET /api/v1/alerts", s.withReport(func(r *pipeline.Report) any {
		return map[string]any{
			"generated_at": r.GeneratedAt,
			"conditions":   r.Conditions,
			"risk_status":  r.RiskStatus,
			"alerts":       nonNil(r.Alerts),
		}
	}))
	mux.HandleFunc("GET /api/v1/models", s.withReport(func(r *pipeline.Report) any {
		return map[string]any{"generated_at": r.GeneratedAt, "samples": r.Samples, "models": r.Models}
	}))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// withReport serves view(report), or 503 until the first run completes.
func (s *Server) withReport(view func(*pipeline.Report) any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		report := s.reports.Latest()
		if report == nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  "no completed run yet",
			})
			return
		}
		s.writeJSON(w, http.StatusOK, view(report))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response failed", "error", err)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
