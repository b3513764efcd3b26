package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_papergen_new")

	assert.NotNil(t, m.PapersStarted)
	assert.NotNil(t, m.PapersCompleted)
	assert.NotNil(t, m.PapersFailed)
	assert.NotNil(t, m.PaperDuration)
	assert.NotNil(t, m.PaperWords)
	assert.NotNil(t, m.SectionsGenerated)
	assert.NotNil(t, m.SectionDuration)
	assert.NotNil(t, m.SectionEditFallbacks)
	assert.NotNil(t, m.SearchesTotal)
	assert.NotNil(t, m.CacheHits)
	assert.NotNil(t, m.CacheMisses)
	assert.NotNil(t, m.LLMRequestsTotal)
	assert.NotNil(t, m.LLMRequestsFailed)
	assert.NotNil(t, m.LLMRetries)
}

func TestRecordPaperStarted(t *testing.T) {
	m := NewMetrics("test_paper_started")

	initial := testutil.ToFloat64(m.PapersStarted)
	m.RecordPaperStarted()
	assert.Equal(t, initial+1, testutil.ToFloat64(m.PapersStarted))
}

func TestRecordPaperCompleted(t *testing.T) {
	m := NewMetrics("test_paper_completed")

	initial := testutil.ToFloat64(m.PapersCompleted)
	m.RecordPaperCompleted(120.5, 4200)
	assert.Equal(t, initial+1, testutil.ToFloat64(m.PapersCompleted))

	// Check histogram
	histCount, err := getHistogramSampleCount(m.PaperDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

func TestRecordPaperFailed(t *testing.T) {
	m := NewMetrics("test_paper_failed")

	initial := testutil.ToFloat64(m.PapersFailed)
	m.RecordPaperFailed(3.0)
	assert.Equal(t, initial+1, testutil.ToFloat64(m.PapersFailed))
}

func TestRecordSectionGenerated(t *testing.T) {
	m := NewMetrics("test_section_generated")

	m.RecordSectionGenerated("results", "ok", 42.1)
	m.RecordSectionGenerated("results", "placeholder", 1.0)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SectionsGenerated.WithLabelValues("results", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SectionsGenerated.WithLabelValues("results", "placeholder")))
}

func TestRecordSectionEditFallback(t *testing.T) {
	m := NewMetrics("test_section_fallback")

	m.RecordSectionEditFallback("discussion")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SectionEditFallbacks.WithLabelValues("discussion")))
}

func TestRecordSearch(t *testing.T) {
	m := NewMetrics("test_search")

	m.RecordSearch("hit", 15, 0.2)
	m.RecordSearch("empty", 0, 4.5)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesTotal.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesTotal.WithLabelValues("empty")))
}

func TestRecordCacheHitMiss(t *testing.T) {
	m := NewMetrics("test_cache")

	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheMisses))
}

func TestRecordLLMRequest(t *testing.T) {
	m := NewMetrics("test_llm_request")

	m.RecordLLMRequest("section_draft", 12.3)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("section_draft")))
}

func TestRecordLLMRequestFailed(t *testing.T) {
	m := NewMetrics("test_llm_failed")

	m.RecordLLMRequestFailed("title", "timeout")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LLMRequestsFailed.WithLabelValues("title", "timeout")))
}

func TestRecordLLMRetry(t *testing.T) {
	m := NewMetrics("test_llm_retry")

	m.RecordLLMRetry("abstract")
	m.RecordLLMRetry("abstract")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.LLMRetries.WithLabelValues("abstract")))
}

// getHistogramSampleCount extracts the sample count from a histogram.
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var dto = &dto.Metric{}
	if err := m.Write(dto); err != nil {
		return 0, err
	}

	return dto.Histogram.GetSampleCount(), nil
}
