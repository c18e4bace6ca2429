package ssr

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the SSR metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "vango").
	Namespace string

	// Subsystem is the metrics subsystem (default: "ssr").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for render duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the SSR metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the render duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "vango",
		Subsystem: "ssr",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus metrics of a State. A nil *Metrics records
// nothing.
type Metrics struct {
	rendersTotal       *prometheus.CounterVec
	renderDuration     prometheus.Histogram
	cacheTotal         *prometheus.CounterVec
	boundariesResolved prometheus.Counter
	chunksSent         prometheus.Counter
	poolIdle           prometheus.Gauge
	activeSessions     prometheus.Gauge
}

// Render outcomes.
const (
	outcomeCached    = "cached"
	outcomeStreamed  = "streamed"
	outcomeNotFound  = "not_found"
	outcomeError     = "error"
	outcomeCancelled = "cancelled"
)

// NewMetrics registers the SSR metrics:
//
//   - vango_ssr_renders_total: renders by outcome
//   - vango_ssr_render_duration_seconds: time from request to end of stream
//   - vango_ssr_cache_requests_total: cache lookups by result (hit, miss, error)
//   - vango_ssr_suspense_boundaries_resolved_total: replacement chunks sent
//   - vango_ssr_chunks_sent_total: chunks sent
//   - vango_ssr_renderer_pool_idle: idle renderers in the pool
//   - vango_ssr_active_sessions: render sessions in progress
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		rendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "renders_total",
			Help:        "Total number of page renders by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_duration_seconds",
			Help:        "Time from the start of a render to the end of its stream",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		cacheTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cache_requests_total",
			Help:        "Incremental cache lookups by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		boundariesResolved: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "suspense_boundaries_resolved_total",
			Help:        "Total number of suspense boundaries streamed after the initial chunk",
			ConstLabels: config.ConstLabels,
		}),

		chunksSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "chunks_sent_total",
			Help:        "Total number of HTML chunks sent",
			ConstLabels: config.ConstLabels,
		}),

		poolIdle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "renderer_pool_idle",
			Help:        "Number of idle renderers in the pool",
			ConstLabels: config.ConstLabels,
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of render sessions in progress",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (m *Metrics) recordRender(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.rendersTotal.WithLabelValues(outcome).Inc()
	m.renderDuration.Observe(seconds)
}

func (m *Metrics) recordCache(result string) {
	if m != nil {
		m.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) recordBoundaryResolved() {
	if m != nil {
		m.boundariesResolved.Inc()
	}
}

func (m *Metrics) recordChunk() {
	if m != nil {
		m.chunksSent.Inc()
	}
}

func (m *Metrics) setPoolIdle(n int) {
	if m != nil {
		m.poolIdle.Set(float64(n))
	}
}

func (m *Metrics) sessionStarted() {
	if m != nil {
		m.activeSessions.Inc()
	}
}

func (m *Metrics) sessionFinished() {
	if m != nil {
		m.activeSessions.Dec()
	}
}
