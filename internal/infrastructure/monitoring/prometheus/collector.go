package prometheus

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
)

// MetricsCollector registers metric vectors on a private registry and serves
// them. Registering a name twice returns the vector registered first.
type MetricsCollector interface {
	RegisterCounter(name, help string, labels ...string) CounterVec
	RegisterGauge(name, help string, labels ...string) GaugeVec
	RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec
	Handler() http.Handler
}

// The vector interfaces are satisfied by the client_golang vectors directly,
// so no wrapper sits between a helper and the sample it records.
type (
	CounterVec   interface{ WithLabelValues(lvs ...string) prometheus.Counter }
	GaugeVec     interface{ WithLabelValues(lvs ...string) prometheus.Gauge }
	HistogramVec interface{ WithLabelValues(lvs ...string) prometheus.Observer }
)

// CollectorConfig names the metrics and selects the runtime collectors.
type CollectorConfig struct {
	Namespace            string
	Subsystem            string
	EnableProcessMetrics bool
	EnableGoMetrics      bool
}

type registryCollector struct {
	registry *prometheus.Registry
	cfg      CollectorConfig
	logger   logging.Logger
}

// NewMetricsCollector creates a collector backed by its own registry, so
// several collectors can live in one process (and one test binary).
func NewMetricsCollector(cfg CollectorConfig, logger logging.Logger) (MetricsCollector, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	registry := prometheus.NewRegistry()
	if cfg.EnableProcessMetrics {
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: cfg.Namespace}))
	}
	if cfg.EnableGoMetrics {
		registry.MustRegister(collectors.NewGoCollector())
	}
	return &registryCollector{registry: registry, cfg: cfg, logger: logger}, nil
}

func (c *registryCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (c *registryCollector) RegisterCounter(name, help string, labels ...string) CounterVec {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.cfg.Namespace, Subsystem: c.cfg.Subsystem, Name: name, Help: help,
	}, labels)
	if existing, ok := c.register(name, "counter", vec).(*prometheus.CounterVec); ok {
		return existing
	}
	return vec
}

func (c *registryCollector) RegisterGauge(name, help string, labels ...string) GaugeVec {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.cfg.Namespace, Subsystem: c.cfg.Subsystem, Name: name, Help: help,
	}, labels)
	if existing, ok := c.register(name, "gauge", vec).(*prometheus.GaugeVec); ok {
		return existing
	}
	return vec
}

// RegisterHistogram uses prometheus.DefBuckets when buckets is nil.
func (c *registryCollector) RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.cfg.Namespace, Subsystem: c.cfg.Subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
	if existing, ok := c.register(name, "histogram", vec).(*prometheus.HistogramVec); ok {
		return existing
	}
	return vec
}

// register returns the collector now serving name: vec itself, or the one
// registered earlier under the same name. On a conflict it returns nil and
// the caller keeps vec unregistered, so its samples are never scraped.
func (c *registryCollector) register(name, kind string, vec prometheus.Collector) prometheus.Collector {
	err := c.registry.Register(vec)
	if err == nil {
		return vec
	}
	var already prometheus.AlreadyRegisteredError
	if stderrors.As(err, &already) {
		return already.ExistingCollector
	}
	c.logger.Error("failed to register metric",
		logging.String("name", name),
		logging.String("type", kind),
		logging.Err(err))
	return nil
}

//Personal.AI order the ending
