package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	handlerapi "github.com/newthinker/folio/internal/api/handler/api"
	"github.com/newthinker/folio/internal/api/job"
	"github.com/newthinker/folio/internal/api/middleware"
	"github.com/newthinker/folio/internal/api/response"
	"github.com/newthinker/folio/internal/metrics"
)

// Server represents the HTTP server for folio
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	jobs       *job.Store
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	JobTTL      time.Duration
	MaxJobs     int
	MetricsPath string // empty disables /metrics
}

// App is everything the routes need from app.App.
type App interface {
	handlerapi.ValuationApp
	handlerapi.AdviceApp
	Stats() map[string]any
}

// Dependencies holds the components served by the API.
type Dependencies struct {
	App      App
	Profiles handlerapi.ProfileService
	Metrics  *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.App == nil || deps.Profiles == nil {
		return nil, fmt.Errorf("app and profiles are required")
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
		jobs:   job.NewStore(cfg.MaxJobs, cfg.JobTTL),
	}
	s.setupRoutes(cfg, deps)

	var handler http.Handler = mux
	handler = middleware.APIKeyAuth(cfg.APIKey, "/api/health", cfg.MetricsPath)(handler)
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(logger)(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // synchronous advice can take a while
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	profiles := handlerapi.NewProfileHandler(deps.Profiles)
	valuation := handlerapi.NewValuationHandler(deps.App)

	var gauge handlerapi.JobsGauge
	if deps.Metrics != nil {
		gauge = deps.Metrics
	}
	adv := handlerapi.NewAdviceHandler(deps.App, s.jobs, gauge)

	s.mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		stats := deps.App.Stats()
		stats["status"] = "ok"
		response.JSON(w, http.StatusOK, stats)
	})

	s.mux.HandleFunc("GET /api/state", profiles.State)
	s.mux.HandleFunc("POST /api/profiles", profiles.Create)
	s.mux.HandleFunc("PATCH /api/profiles/{id}", profiles.Update)
	s.mux.HandleFunc("DELETE /api/profiles/{id}", profiles.Delete)
	s.mux.HandleFunc("POST /api/profiles/{id}/activate", profiles.Activate)
	s.mux.HandleFunc("POST /api/profiles/{id}/holdings", profiles.AddHolding)
	s.mux.HandleFunc("PUT /api/profiles/{id}/holdings/{hid}", profiles.UpdateHolding)
	s.mux.HandleFunc("DELETE /api/profiles/{id}/holdings/{hid}", profiles.DeleteHolding)

	s.mux.HandleFunc("GET /api/profiles/{id}/valuation", valuation.Valuation)
	s.mux.HandleFunc("POST /api/profiles/{id}/quotes/refresh", valuation.RefreshQuotes)
	s.mux.HandleFunc("POST /api/quotes", valuation.Quotes)
	s.mux.HandleFunc("GET /api/exchange-rate", valuation.ExchangeRate)

	s.mux.HandleFunc("POST /api/profiles/{id}/advice", adv.Create)
	s.mux.HandleFunc("GET /api/jobs/{id}", adv.GetJob)

	if cfg.MetricsPath != "" && deps.Metrics != nil {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
