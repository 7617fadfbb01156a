package prometheus

import (
	"strconv"
	"time"
)

// PillMetrics holds every metric the service exports.
type PillMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Pipeline
	PipelineRequestsTotal CounterVec
	PipelineDuration      HistogramVec
	StageTransitionsTotal CounterVec

	// Label cache
	CacheAccessTotal CounterVec
	FetchesCoalesced CounterVec

	// Upstream services
	UpstreamRequestsTotal CounterVec
	UpstreamDuration      HistogramVec
	LLMTokensUsed         CounterVec

	// Events
	EventsPublishedTotal CounterVec

	// Health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

var (
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultUpstreamDurationBuckets = []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30}
)

// Cache access results.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheCorrupt = "corrupt"
)

// NewPillMetrics registers all metrics on collector.
func NewPillMetrics(collector MetricsCollector) *PillMetrics {
	m := &PillMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	m.PipelineRequestsTotal = collector.RegisterCounter("pipeline_requests_total", "Pipeline operations by outcome", "operation", "outcome")
	m.PipelineDuration = collector.RegisterHistogram("pipeline_duration_seconds", "Pipeline operation duration", DefaultUpstreamDurationBuckets, "operation")
	m.StageTransitionsTotal = collector.RegisterCounter("pipeline_stage_total", "Pipeline stages entered", "stage")

	m.CacheAccessTotal = collector.RegisterCounter("label_cache_access_total", "Label cache lookups by result", "result")
	m.FetchesCoalesced = collector.RegisterCounter("label_fetch_coalesced_total", "Label lookups that joined an in-flight fetch")

	m.UpstreamRequestsTotal = collector.RegisterCounter("upstream_requests_total", "Calls to external services", "service", "status")
	m.UpstreamDuration = collector.RegisterHistogram("upstream_request_duration_seconds", "External service latency", DefaultUpstreamDurationBuckets, "service")
	m.LLMTokensUsed = collector.RegisterCounter("llm_tokens_total", "Generation tokens used", "direction")

	m.EventsPublishedTotal = collector.RegisterCounter("events_published_total", "Pipeline events published", "type", "status")

	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Errors surfaced to callers", "kind")

	return m
}

// Helpers. Every helper tolerates a nil *PillMetrics.

func RecordHTTPRequest(m *PillMetrics, method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordPipeline(m *PillMetrics, operation string, err error, duration time.Duration, kind string) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
		m.ErrorsTotal.WithLabelValues(kind).Inc()
	}
	m.PipelineRequestsTotal.WithLabelValues(operation, outcome).Inc()
	m.PipelineDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordStage(m *PillMetrics, stage string) {
	if m == nil {
		return
	}
	m.StageTransitionsTotal.WithLabelValues(stage).Inc()
}

func RecordCacheAccess(m *PillMetrics, result string) {
	if m == nil {
		return
	}
	m.CacheAccessTotal.WithLabelValues(result).Inc()
}

func RecordCoalescedFetch(m *PillMetrics) {
	if m == nil {
		return
	}
	m.FetchesCoalesced.WithLabelValues().Inc()
}

func RecordUpstream(m *PillMetrics, service string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.UpstreamRequestsTotal.WithLabelValues(service, status).Inc()
	m.UpstreamDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordLLMTokens counts the prompt and completion tokens of one generation.
func RecordLLMTokens(m *PillMetrics, prompt, completion int64) {
	if m == nil {
		return
	}
	if prompt > 0 {
		m.LLMTokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	}
	if completion > 0 {
		m.LLMTokensUsed.WithLabelValues("completion").Add(float64(completion))
	}
}

func RecordEvent(m *PillMetrics, eventType string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}

func RecordHealth(m *PillMetrics, component string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}

//Personal.AI order the ending
