// Package observability provides logging and metrics support for the paper
// generation service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for papers, sections, retrieval, and the
//     generation backend
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("topic", topic).Msg("paper generation started")
//
// Add generation context to a logger:
//
//	logger = observability.WithPaperContext(logger, paperID, topic)
//	logger = observability.WithSectionContext(logger, "methodology", attempt)
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("papergen")
//
// Record metrics:
//
//	metrics.RecordPaperStarted()
//	metrics.RecordSectionGenerated("results", "ok", 42.1)
//	metrics.RecordCacheHit()
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - paper_id: Generated paper identifier
//   - topic: User's research topic
//   - section: Paper section name
//   - query: Retrieval query
//   - source: Document source (semantic_scholar)
//   - attempt: Retry attempt number
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
