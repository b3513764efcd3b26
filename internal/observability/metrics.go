package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper generation service.
// Metrics are organized by subsystem: papers, sections, retrieval, cache, and
// generation backend operations. All counters and histograms are registered
// via promauto for automatic registration with the default Prometheus registry.
type Metrics struct {
	// PapersStarted counts the total number of paper generations initiated.
	PapersStarted prometheus.Counter

	// PapersCompleted counts the total number of papers that finished assembly.
	PapersCompleted prometheus.Counter

	// PapersFailed counts the total number of generations that ended in failure.
	PapersFailed prometheus.Counter

	// PaperDuration observes the end-to-end duration of paper generation in seconds.
	PaperDuration prometheus.Histogram

	// PaperWords observes the total word count of assembled papers.
	PaperWords prometheus.Histogram

	// SectionsGenerated counts section generations by section and outcome
	// (ok, placeholder).
	SectionsGenerated *prometheus.CounterVec

	// SectionDuration observes per-section generation duration in seconds.
	SectionDuration *prometheus.HistogramVec

	// SectionEditFallbacks counts sections that shipped the draft because
	// the edit pass failed.
	SectionEditFallbacks *prometheus.CounterVec

	// SearchesTotal counts retrieval searches by outcome (hit, miss, empty).
	SearchesTotal *prometheus.CounterVec

	// SearchDuration observes retrieval duration in seconds.
	SearchDuration prometheus.Histogram

	// DocumentsRetrieved observes the number of usable documents per search.
	DocumentsRetrieved prometheus.Histogram

	// CacheHits counts retrieval cache hits.
	CacheHits prometheus.Counter

	// CacheMisses counts retrieval cache misses (including expired entries).
	CacheMisses prometheus.Counter

	// LLMRequestsTotal counts generation backend requests, labeled by operation.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed backend requests, labeled by operation
	// and error type.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes backend request duration in seconds.
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRetries counts retry attempts against the generation backend.
	LLMRetries *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Papers
		PapersStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_started_total",
			Help:      "Total number of paper generations started",
		}),
		PapersCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_completed_total",
			Help:      "Total number of paper generations completed",
		}),
		PapersFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_failed_total",
			Help:      "Total number of paper generations that failed",
		}),
		PaperDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "paper_duration_seconds",
			Help:      "Duration of paper generation in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		}),
		PaperWords: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "paper_words",
			Help:      "Total word count of assembled papers",
			Buckets:   []float64{500, 1000, 2000, 3000, 4000, 6000, 8000, 12000},
		}),

		// Sections
		SectionsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sections_generated_total",
			Help:      "Total number of section generations by section and outcome",
		}, []string{"section", "outcome"}),
		SectionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "section_duration_seconds",
			Help:      "Duration of section generation in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"section"}),
		SectionEditFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "section_edit_fallbacks_total",
			Help:      "Total number of sections that fell back to the draft pass",
		}, []string{"section"}),

		// Retrieval
		SearchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of document searches by outcome",
		}, []string{"outcome"}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of document searches in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		DocumentsRetrieved: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "documents_retrieved",
			Help:      "Number of usable documents returned per search",
			Buckets:   []float64{0, 1, 5, 10, 15, 25, 50},
		}),

		// Cache
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of retrieval cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of retrieval cache misses",
		}),

		// Generation backend
		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of generation backend requests by operation",
		}, []string{"operation"}),
		LLMRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed generation backend requests",
		}, []string{"operation", "error_type"}),
		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of generation backend requests in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"operation"}),
		LLMRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_retries_total",
			Help:      "Total number of retry attempts against the generation backend",
		}, []string{"operation"}),
	}
}

// RecordPaperStarted records that a paper generation has started.
func (m *Metrics) RecordPaperStarted() {
	m.PapersStarted.Inc()
}

// RecordPaperCompleted records that a paper generation has completed.
func (m *Metrics) RecordPaperCompleted(durationSeconds float64, totalWords int) {
	m.PapersCompleted.Inc()
	m.PaperDuration.Observe(durationSeconds)
	m.PaperWords.Observe(float64(totalWords))
}

// RecordPaperFailed records that a paper generation has failed.
func (m *Metrics) RecordPaperFailed(durationSeconds float64) {
	m.PapersFailed.Inc()
	m.PaperDuration.Observe(durationSeconds)
}

// RecordSectionGenerated records a section generation outcome.
func (m *Metrics) RecordSectionGenerated(section, outcome string, durationSeconds float64) {
	m.SectionsGenerated.WithLabelValues(section, outcome).Inc()
	m.SectionDuration.WithLabelValues(section).Observe(durationSeconds)
}

// RecordSectionEditFallback records a section that shipped its draft.
func (m *Metrics) RecordSectionEditFallback(section string) {
	m.SectionEditFallbacks.WithLabelValues(section).Inc()
}

// RecordSearch records a document search and its outcome.
func (m *Metrics) RecordSearch(outcome string, docCount int, durationSeconds float64) {
	m.SearchesTotal.WithLabelValues(outcome).Inc()
	m.SearchDuration.Observe(durationSeconds)
	m.DocumentsRetrieved.Observe(float64(docCount))
}

// RecordCacheHit records a retrieval cache hit.
func (m *Metrics) RecordCacheHit() {
	m.CacheHits.Inc()
}

// RecordCacheMiss records a retrieval cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.CacheMisses.Inc()
}

// RecordLLMRequest records a generation backend request.
func (m *Metrics) RecordLLMRequest(operation string, durationSeconds float64) {
	m.LLMRequestsTotal.WithLabelValues(operation).Inc()
	m.LLMRequestDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordLLMRequestFailed records a failed generation backend request.
func (m *Metrics) RecordLLMRequestFailed(operation, errorType string) {
	m.LLMRequestsFailed.WithLabelValues(operation, errorType).Inc()
}

// RecordLLMRetry records a retry attempt against the generation backend.
func (m *Metrics) RecordLLMRetry(operation string) {
	m.LLMRetries.WithLabelValues(operation).Inc()
}
