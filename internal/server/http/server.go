// Package httpserver provides the HTTP REST API for the paper
// generation service.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-generator-service/internal/domain"
	"github.com/helixir/paper-generator-service/internal/generator"
)

// PaperGenerator runs the generation pipeline.
type PaperGenerator interface {
	Generate(ctx context.Context, req generator.Request) (*domain.Paper, error)
	GenerateStream(ctx context.Context, req generator.Request) <-chan domain.ProgressEvent
}

// DocumentSearcher finds grounding documents for the search endpoint.
type DocumentSearcher interface {
	Search(ctx context.Context, query string, limit int) []domain.Reference
}

// Backend exposes the generation backend operations the API surfaces
// directly, outside the paper pipeline.
type Backend interface {
	Warm(ctx context.Context) bool
	GenerateSurvey(ctx context.Context, topic string, papers []domain.Reference) (string, error)
	GenerateTitleOptions(ctx context.Context, description string, count int) []string
}

// PaperStore persists assembled papers.
type PaperStore interface {
	Save(paper *domain.Paper) (string, error)
	Latest() (*domain.Paper, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// MetricsEnabled exposes Prometheus metrics at MetricsPath.
	MetricsEnabled bool
	MetricsPath    string

	// MaxUserDataChars bounds caller-supplied experimental details.
	MaxUserDataChars int
	// UseGroundingDefault applies when a request omits use_grounding.
	UseGroundingDefault bool
}

// Server is the HTTP REST API server.
type Server struct {
	cfg        Config
	router     chi.Router
	httpServer *http.Server
	generator  PaperGenerator
	searcher   DocumentSearcher
	backend    Backend
	store      PaperStore
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(
	cfg Config,
	gen PaperGenerator,
	searcher DocumentSearcher,
	backend Backend,
	store PaperStore,
	logger zerolog.Logger,
) *Server {
	if cfg.MaxUserDataChars <= 0 {
		cfg.MaxUserDataChars = 10000
	}

	s := &Server{
		cfg:       cfg,
		generator: gen,
		searcher:  searcher,
		backend:   backend,
		store:     store,
		validate:  validator.New(),
		logger:    logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)

	// Health and metrics endpoints stay outside the JSON middleware.
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)
	if s.cfg.MetricsEnabled {
		path := s.cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jsonContentTypeMiddleware)

		r.Post("/papers", s.generatePaper)
		r.Post("/papers/stream", s.streamPaper)
		r.Get("/papers/latest", s.latestPaper)
		r.Post("/papers/search", s.searchPapers)
		r.Post("/surveys", s.generateSurvey)
		r.Post("/titles", s.titleOptions)
		r.Post("/warmup", s.warmup)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the router, for tests that mount it on httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler returns readiness status. The service holds no
// connections that must be up before accepting requests; backend
// outages degrade inside the pipeline rather than failing readiness.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
