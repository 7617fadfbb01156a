package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestPillMetrics(t *testing.T) (*PillMetrics, MetricsCollector) {
	c := newTestCollector(t)
	return NewPillMetrics(c), c
}

func TestNewPillMetrics_RegistersEverything(t *testing.T) {
	m, c := newTestPillMetrics(t)

	RecordHTTPRequest(m, "POST", "/api/v1/pills/identify", 200, 20*time.Millisecond)
	RecordPipeline(m, "identify", nil, time.Second, "")
	RecordStage(m, "cache_hit")
	RecordCacheAccess(m, CacheMiss)
	RecordCoalescedFetch(m)
	RecordUpstream(m, "regulatory", nil, 300*time.Millisecond)
	RecordEvent(m, "pill.identified", nil)
	RecordHealth(m, "redis", true)

	out := scrapeMetrics(t, c)
	for _, name := range []string{
		`test_unit_http_requests_total{method="POST",path="/api/v1/pills/identify",status_code="200"} 1`,
		`test_unit_pipeline_requests_total{operation="identify",outcome="success"} 1`,
		`test_unit_pipeline_stage_total{stage="cache_hit"} 1`,
		`test_unit_label_cache_access_total{result="miss"} 1`,
		`test_unit_label_fetch_coalesced_total 1`,
		`test_unit_upstream_requests_total{service="regulatory",status="ok"} 1`,
		`test_unit_events_published_total{status="ok",type="pill.identified"} 1`,
		`test_unit_health_check_status{component="redis"} 1`,
	} {
		assert.Contains(t, out, name)
	}
}

func TestRecordPipeline_FailureCountsErrorKind(t *testing.T) {
	m, c := newTestPillMetrics(t)
	RecordPipeline(m, "converse", errors.New("x"), time.Second, "ResolutionError")

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_pipeline_requests_total{operation="converse",outcome="failure"} 1`)
	assert.Contains(t, out, `test_unit_errors_total{kind="ResolutionError"} 1`)
}

func TestRecordLLMTokens(t *testing.T) {
	m, c := newTestPillMetrics(t)
	RecordLLMTokens(m, 120, 40)
	RecordLLMTokens(m, 30, 0)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_llm_tokens_total{direction="prompt"} 150`)
	assert.Contains(t, out, `test_unit_llm_tokens_total{direction="completion"} 40`)
}

func TestHelpers_NilMetrics(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordHTTPRequest(nil, "GET", "/", 200, 0)
		RecordPipeline(nil, "x", nil, 0, "")
		RecordStage(nil, "x")
		RecordCacheAccess(nil, CacheHit)
		RecordCoalescedFetch(nil)
		RecordUpstream(nil, "x", nil, 0)
		RecordEvent(nil, "x", nil)
		RecordLLMTokens(nil, 1, 1)
		RecordHealth(nil, "x", false)
	})
}

//Personal.AI order the ending
