// Package metrics collects business metrics for the consultation service.
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// AdvisorMetrics holds counters for the consultation pipeline.
type AdvisorMetrics struct {
	queriesTotal    uint64
	queriesFresh    uint64
	queriesFollowUp uint64
	queriesFailed   uint64
	cacheHits       uint64
	cacheMisses     uint64

	retrievalTotal    uint64
	retrievalDuration float64
	retrievalErrors   uint64
	matchesDropped    uint64

	llmCallsTotal    uint64
	llmCallsDuration float64
	llmCallsErrors   uint64

	coursesIndexed uint64
	indexErrors    uint64

	sessionsOpened uint64
	sessionsClosed uint64

	startTime  time.Time
	durationMu sync.Mutex
}

var (
	globalMetrics *AdvisorMetrics
	metricsOnce   sync.Once
)

// GetAdvisorMetrics returns the process-wide metrics instance.
func GetAdvisorMetrics() *AdvisorMetrics {
	metricsOnce.Do(func() {
		globalMetrics = &AdvisorMetrics{
			startTime: time.Now(),
		}
	})
	return globalMetrics
}

// RecordQuery records one handled query.
func (m *AdvisorMetrics) RecordQuery(followUp bool, failed bool) {
	atomic.AddUint64(&m.queriesTotal, 1)
	if followUp {
		atomic.AddUint64(&m.queriesFollowUp, 1)
	} else {
		atomic.AddUint64(&m.queriesFresh, 1)
	}
	if failed {
		atomic.AddUint64(&m.queriesFailed, 1)
	}
}

// RecordCache records an answer cache lookup.
func (m *AdvisorMetrics) RecordCache(hit bool) {
	if hit {
		atomic.AddUint64(&m.cacheHits, 1)
	} else {
		atomic.AddUint64(&m.cacheMisses, 1)
	}
}

// RecordRetrieval records a retrieval operation.
func (m *AdvisorMetrics) RecordRetrieval(duration time.Duration, dropped int, err error) {
	atomic.AddUint64(&m.retrievalTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.retrievalErrors, 1)
		return
	}

	if dropped > 0 {
		atomic.AddUint64(&m.matchesDropped, uint64(dropped))
	}

	m.durationMu.Lock()
	m.retrievalDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordLLMCall records a chat model invocation.
func (m *AdvisorMetrics) RecordLLMCall(duration time.Duration, err error) {
	atomic.AddUint64(&m.llmCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.llmCallsErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.llmCallsDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordIndexing records a catalog indexing run.
func (m *AdvisorMetrics) RecordIndexing(courses int, err error) {
	if err != nil {
		atomic.AddUint64(&m.indexErrors, 1)
		return
	}
	atomic.AddUint64(&m.coursesIndexed, uint64(courses))
}

// RecordSessionOpened records a new session.
func (m *AdvisorMetrics) RecordSessionOpened() {
	atomic.AddUint64(&m.sessionsOpened, 1)
}

// RecordSessionClosed records a finished session.
func (m *AdvisorMetrics) RecordSessionClosed() {
	atomic.AddUint64(&m.sessionsClosed, 1)
}

// Export renders the counters in Prometheus text format.
func (m *AdvisorMetrics) Export(namespace, subsystem string) string {
	var sb strings.Builder
	prefix := namespace
	if subsystem != "" {
		prefix = prefix + "_" + subsystem
	}

	counter := func(name, help string, value uint64) {
		sb.WriteString(fmt.Sprintf("# HELP %s_%s %s\n", prefix, name, help))
		sb.WriteString(fmt.Sprintf("# TYPE %s_%s counter\n", prefix, name))
		sb.WriteString(fmt.Sprintf("%s_%s %d\n\n", prefix, name, value))
	}

	counter("queries_total", "Total number of handled queries.", atomic.LoadUint64(&m.queriesTotal))
	counter("queries_fresh_total", "Number of fresh queries.", atomic.LoadUint64(&m.queriesFresh))
	counter("queries_follow_up_total", "Number of follow-up queries.", atomic.LoadUint64(&m.queriesFollowUp))
	counter("queries_failed_total", "Number of failed queries.", atomic.LoadUint64(&m.queriesFailed))
	counter("cache_hits_total", "Number of answer cache hits.", atomic.LoadUint64(&m.cacheHits))
	counter("cache_misses_total", "Number of answer cache misses.", atomic.LoadUint64(&m.cacheMisses))
	counter("retrieval_total", "Total number of retrievals.", atomic.LoadUint64(&m.retrievalTotal))
	counter("retrieval_errors_total", "Number of retrieval errors.", atomic.LoadUint64(&m.retrievalErrors))
	counter("matches_dropped_total", "Matches dropped during metadata validation.", atomic.LoadUint64(&m.matchesDropped))
	counter("llm_calls_total", "Total number of LLM calls.", atomic.LoadUint64(&m.llmCallsTotal))
	counter("llm_calls_errors_total", "Number of LLM call errors.", atomic.LoadUint64(&m.llmCallsErrors))
	counter("courses_indexed_total", "Total catalog entries indexed.", atomic.LoadUint64(&m.coursesIndexed))
	counter("index_errors_total", "Number of indexing errors.", atomic.LoadUint64(&m.indexErrors))
	counter("sessions_opened_total", "Number of sessions opened.", atomic.LoadUint64(&m.sessionsOpened))
	counter("sessions_closed_total", "Number of sessions closed.", atomic.LoadUint64(&m.sessionsClosed))

	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	sb.WriteString(fmt.Sprintf("# HELP %s_retrieval_duration_seconds_total Total retrieval duration.\n", prefix))
	sb.WriteString(fmt.Sprintf("# TYPE %s_retrieval_duration_seconds_total counter\n", prefix))
	sb.WriteString(fmt.Sprintf("%s_retrieval_duration_seconds_total %.6f\n\n", prefix, retrievalDuration))

	sb.WriteString(fmt.Sprintf("# HELP %s_llm_calls_duration_seconds_total Total LLM call duration.\n", prefix))
	sb.WriteString(fmt.Sprintf("# TYPE %s_llm_calls_duration_seconds_total counter\n", prefix))
	sb.WriteString(fmt.Sprintf("%s_llm_calls_duration_seconds_total %.6f\n\n", prefix, llmDuration))

	uptime := time.Since(m.startTime).Seconds()
	sb.WriteString(fmt.Sprintf("# HELP %s_uptime_seconds Service uptime in seconds.\n", prefix))
	sb.WriteString(fmt.Sprintf("# TYPE %s_uptime_seconds gauge\n", prefix))
	sb.WriteString(fmt.Sprintf("%s_uptime_seconds %.2f\n\n", prefix, uptime))

	return sb.String()
}

// Stats returns the current counters for the stats API.
func (m *AdvisorMetrics) Stats() map[string]interface{} {
	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	cacheHits := atomic.LoadUint64(&m.cacheHits)
	cacheMisses := atomic.LoadUint64(&m.cacheMisses)
	cacheTotal := cacheHits + cacheMisses
	cacheHitRate := 0.0
	if cacheTotal > 0 {
		cacheHitRate = float64(cacheHits) / float64(cacheTotal)
	}

	retrievalTotal := atomic.LoadUint64(&m.retrievalTotal)
	avgRetrievalDuration := 0.0
	if retrievalTotal > 0 {
		avgRetrievalDuration = retrievalDuration / float64(retrievalTotal)
	}

	llmTotal := atomic.LoadUint64(&m.llmCallsTotal)
	avgLLMDuration := 0.0
	if llmTotal > 0 {
		avgLLMDuration = llmDuration / float64(llmTotal)
	}

	return map[string]interface{}{
		"queries": map[string]interface{}{
			"total":          atomic.LoadUint64(&m.queriesTotal),
			"fresh":          atomic.LoadUint64(&m.queriesFresh),
			"follow_up":      atomic.LoadUint64(&m.queriesFollowUp),
			"failed":         atomic.LoadUint64(&m.queriesFailed),
			"cache_hits":     cacheHits,
			"cache_misses":   cacheMisses,
			"cache_hit_rate": cacheHitRate,
		},
		"retrieval": map[string]interface{}{
			"total":               retrievalTotal,
			"total_duration_secs": retrievalDuration,
			"avg_duration_secs":   avgRetrievalDuration,
			"errors":              atomic.LoadUint64(&m.retrievalErrors),
			"matches_dropped":     atomic.LoadUint64(&m.matchesDropped),
		},
		"llm": map[string]interface{}{
			"calls_total":         llmTotal,
			"total_duration_secs": llmDuration,
			"avg_duration_secs":   avgLLMDuration,
			"errors":              atomic.LoadUint64(&m.llmCallsErrors),
		},
		"indexing": map[string]interface{}{
			"courses_indexed": atomic.LoadUint64(&m.coursesIndexed),
			"errors":          atomic.LoadUint64(&m.indexErrors),
		},
		"sessions": map[string]interface{}{
			"opened": atomic.LoadUint64(&m.sessionsOpened),
			"closed": atomic.LoadUint64(&m.sessionsClosed),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}

// Reset clears all counters. Test helper.
func (m *AdvisorMetrics) Reset() {
	atomic.StoreUint64(&m.queriesTotal, 0)
	atomic.StoreUint64(&m.queriesFresh, 0)
	atomic.StoreUint64(&m.queriesFollowUp, 0)
	atomic.StoreUint64(&m.queriesFailed, 0)
	atomic.StoreUint64(&m.cacheHits, 0)
	atomic.StoreUint64(&m.cacheMisses, 0)
	atomic.StoreUint64(&m.retrievalTotal, 0)
	atomic.StoreUint64(&m.retrievalErrors, 0)
	atomic.StoreUint64(&m.matchesDropped, 0)
	atomic.StoreUint64(&m.llmCallsTotal, 0)
	atomic.StoreUint64(&m.llmCallsErrors, 0)
	atomic.StoreUint64(&m.coursesIndexed, 0)
	atomic.StoreUint64(&m.indexErrors, 0)
	atomic.StoreUint64(&m.sessionsOpened, 0)
	atomic.StoreUint64(&m.sessionsClosed, 0)

	m.durationMu.Lock()
	m.retrievalDuration = 0
	m.llmCallsDuration = 0
	m.startTime = time.Now()
	m.durationMu.Unlock()
}
