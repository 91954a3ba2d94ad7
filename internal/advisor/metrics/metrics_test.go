package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAdvisorMetrics_Singleton(t *testing.T) {
	assert.Same(t, GetAdvisorMetrics(), GetAdvisorMetrics())
}

func TestRecordQuery(t *testing.T) {
	m := GetAdvisorMetrics()
	m.Reset()

	m.RecordQuery(false, false)
	m.RecordQuery(false, true)
	m.RecordQuery(true, false)

	stats := m.Stats()
	queries := stats["queries"].(map[string]interface{})
	assert.Equal(t, uint64(3), queries["total"])
	assert.Equal(t, uint64(2), queries["fresh"])
	assert.Equal(t, uint64(1), queries["follow_up"])
	assert.Equal(t, uint64(1), queries["failed"])
}

func TestRecordCacheHitRate(t *testing.T) {
	m := GetAdvisorMetrics()
	m.Reset()

	m.RecordCache(true)
	m.RecordCache(true)
	m.RecordCache(false)

	queries := m.Stats()["queries"].(map[string]interface{})
	assert.Equal(t, uint64(2), queries["cache_hits"])
	assert.Equal(t, uint64(1), queries["cache_misses"])
	assert.InDelta(t, 2.0/3.0, queries["cache_hit_rate"].(float64), 0.0001)
}

func TestRecordRetrieval(t *testing.T) {
	m := GetAdvisorMetrics()
	m.Reset()

	m.RecordRetrieval(100*time.Millisecond, 2, nil)
	m.RecordRetrieval(50*time.Millisecond, 0, errors.New("search failed"))

	retrieval := m.Stats()["retrieval"].(map[string]interface{})
	assert.Equal(t, uint64(2), retrieval["total"])
	assert.Equal(t, uint64(1), retrieval["errors"])
	assert.Equal(t, uint64(2), retrieval["matches_dropped"])
	// The failed call contributes no duration.
	assert.InDelta(t, 0.1, retrieval["total_duration_secs"].(float64), 0.0001)
}

func TestRecordLLMCall(t *testing.T) {
	m := GetAdvisorMetrics()
	m.Reset()

	m.RecordLLMCall(time.Second, nil)
	m.RecordLLMCall(time.Second, errors.New("timeout"))

	llm := m.Stats()["llm"].(map[string]interface{})
	assert.Equal(t, uint64(2), llm["calls_total"])
	assert.Equal(t, uint64(1), llm["errors"])
	// Average over all calls, the failed one contributed no duration.
	assert.InDelta(t, 0.5, llm["avg_duration_secs"].(float64), 0.0001)
}

func TestRecordIndexingAndSessions(t *testing.T) {
	m := GetAdvisorMetrics()
	m.Reset()

	m.RecordIndexing(10, nil)
	m.RecordIndexing(0, errors.New("insert failed"))
	m.RecordSessionOpened()
	m.RecordSessionOpened()
	m.RecordSessionClosed()

	stats := m.Stats()
	indexing := stats["indexing"].(map[string]interface{})
	assert.Equal(t, uint64(10), indexing["courses_indexed"])
	assert.Equal(t, uint64(1), indexing["errors"])

	sessions := stats["sessions"].(map[string]interface{})
	assert.Equal(t, uint64(2), sessions["opened"])
	assert.Equal(t, uint64(1), sessions["closed"])
}

func TestExport_PrometheusFormat(t *testing.T) {
	m := GetAdvisorMetrics()
	m.Reset()
	m.RecordQuery(false, false)

	out := m.Export("advisor", "")

	require.NotEmpty(t, out)
	assert.Contains(t, out, "# HELP advisor_queries_total")
	assert.Contains(t, out, "# TYPE advisor_queries_total counter")
	assert.Contains(t, out, "advisor_queries_total 1")
}

func TestExport_WithSubsystem(t *testing.T) {
	m := GetAdvisorMetrics()
	m.Reset()

	out := m.Export("course", "advisor")
	assert.Contains(t, out, "course_advisor_queries_total")
}

func TestMetrics_ConcurrentRecording(t *testing.T) {
	m := GetAdvisorMetrics()
	m.Reset()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordQuery(false, false)
				m.RecordCache(j%2 == 0)
			}
		}()
	}
	wg.Wait()

	queries := m.Stats()["queries"].(map[string]interface{})
	assert.Equal(t, uint64(1000), queries["total"])
}
