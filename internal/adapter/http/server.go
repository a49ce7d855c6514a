// Package http exposes the analysis service over a JSON HTTP API alongside
// health, readiness, and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/weather-insight-service/internal/analysis"
	"github.com/couchcryptid/weather-insight-service/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// AnalysisService is the set of operations the API exposes.
// *analysis.Service satisfies it.
type AnalysisService interface {
	ReadinessChecker
	Latest() (domain.Snapshot, bool)
	AnalyzePoint(ctx context.Context, point domain.LatLng, dates domain.DateRange, enabled domain.ConditionSet) (analysis.PointAnalysis, error)
	AnalyzeArea(ctx context.Context, shape domain.Shape, grid int, dates domain.DateRange, enabled domain.ConditionSet) (analysis.AreaAnalysis, error)
	PlanRoute(ctx context.Context, startText, endText string, dates domain.DateRange, enabled domain.ConditionSet) (analysis.RoutePlan, error)
	FindAlternatives(ctx context.Context, base domain.LatLng, dates domain.DateRange, enabled domain.ConditionSet) ([]analysis.AlternativeCandidate, error)
	Reply(ctx context.Context, message string, dates domain.DateRange, enabled domain.ConditionSet) (string, error)
}

// Server exposes the API and the health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	handler    *Handler
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the /v1 API plus /healthz, /readyz,
// and /metrics routes.
func NewServer(addr string, svc AnalysisService, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			// Route analyses fan out to many upstream calls.
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		handler: NewHandler(svc, logger),
		logger:  logger,
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", handleReady(svc))
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", s.handler.RegisterRoutes)

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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// requestLogger logs one line per request at debug level, and at warn level
// for server errors.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			level := slog.LevelDebug
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
