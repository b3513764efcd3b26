// Package main provides the entry point for the paper generation service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/helixir/paper-generator-service/internal/cache"
	"github.com/helixir/paper-generator-service/internal/config"
	"github.com/helixir/paper-generator-service/internal/domain"
	"github.com/helixir/paper-generator-service/internal/generator"
	"github.com/helixir/paper-generator-service/internal/llm"
	"github.com/helixir/paper-generator-service/internal/observability"
	"github.com/helixir/paper-generator-service/internal/papersources/semanticscholar"
	"github.com/helixir/paper-generator-service/internal/retriever"
	httpserver "github.com/helixir/paper-generator-service/internal/server/http"
	"github.com/helixir/paper-generator-service/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// disabledSearcher stands in when retrieval is turned off.
type disabledSearcher struct{}

func (disabledSearcher) Search(ctx context.Context, query string, limit int) ([]domain.Reference, error) {
	return nil, nil
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("paper-generator-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics("papergen")

	// Retrieval cache.
	retrievalCache := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, logger)
	if removed := retrievalCache.ClearExpired(); removed > 0 {
		logger.Info().Int("removed", removed).Msg("expired cache entries cleared")
	}

	// Document source + retriever.
	var source retriever.Searcher = disabledSearcher{}
	if cfg.SemanticScholar.Enabled {
		source = semanticscholar.NewClient(semanticscholar.Config{
			BaseURL:    cfg.SemanticScholar.BaseURL,
			APIKey:     cfg.SemanticScholar.APIKey,
			Timeout:    cfg.SemanticScholar.Timeout,
			RateLimit:  cfg.SemanticScholar.RateLimit,
			MaxRetries: cfg.SemanticScholar.MaxRetries,
			RetryDelay: cfg.SemanticScholar.RetryDelay,
			Logger:     logger,
		}, nil)
	} else {
		logger.Warn().Msg("document retrieval disabled, papers will use generic references only")
	}
	docRetriever := retriever.New(source, retrievalCache, cfg.Generator.MaxContextChars, logger, metrics)

	// Generation backend.
	backend := llm.NewClient(llm.Config{
		BaseURL:                  cfg.Ollama.BaseURL,
		Model:                    cfg.Ollama.Model,
		Timeout:                  cfg.Ollama.Timeout,
		MaxRetries:               cfg.Ollama.MaxRetries,
		RetryBaseDelay:           cfg.Ollama.RetryBaseDelay,
		RetryBackoffFactor:       cfg.Ollama.RetryBackoffFactor,
		EnforceCompleteSentences: true,
	}, logger, metrics)

	// Warm the model in the background so the first request does not pay
	// the load cost.
	go func() {
		if backend.Warm(ctx) {
			logger.Info().Str("model", backend.Model()).Msg("model warmed up")
		} else {
			logger.Warn().Str("model", backend.Model()).Msg("model warmup failed, continuing anyway")
		}
	}()

	// Pipeline, persistence, HTTP API.
	gen := generator.New(backend, docRetriever, generator.Config{
		SectionWorkers: cfg.Generator.SectionWorkers,
		MinReferences:  cfg.Generator.MinReferences,
		RetrievalLimit: cfg.Generator.RetrievalLimit,
	}, logger, metrics)

	store := storage.New(cfg.Storage.Dir, logger)

	httpCfg := httpserver.Config{
		Address:             cfg.Server.HTTPAddress(),
		ReadTimeout:         cfg.Server.ReadTimeout,
		WriteTimeout:        cfg.Server.WriteTimeout,
		IdleTimeout:         2 * time.Minute,
		ShutdownTimeout:     cfg.Server.ShutdownTimeout,
		MetricsEnabled:      cfg.Metrics.Enabled,
		MetricsPath:         cfg.Metrics.Path,
		MaxUserDataChars:    cfg.Generator.MaxUserDataChars,
		UseGroundingDefault: cfg.Generator.UseGroundingDefault,
	}
	httpSrv := httpserver.NewServer(httpCfg, gen, docRetriever, backend, store, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info().
		Str("http_address", httpCfg.Address).
		Str("model", backend.Model()).
		Msg("paper-generator-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("paper-generator-service shutdown complete")
	return nil
}
