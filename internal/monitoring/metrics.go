// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the Prometheus instrumentation for the extraction service.
type Metrics struct {
	registry *prometheus.Registry

	// Render metrics. RendersInFlight makes the worker-pool bound
	// observable: it must never exceed the configured concurrency.
	RendersInFlight prometheus.Gauge
	RendersTotal    *prometheus.CounterVec
	RenderDuration  prometheus.Histogram

	// Cache metrics.
	CacheLookups *prometheus.CounterVec

	// Job metrics.
	JobsTotal  *prometheus.CounterVec
	JobsActive prometheus.Gauge

	// Per-URL outcome metrics.
	URLsProcessed *prometheus.CounterVec

	// Extraction metrics: which fields matched and which degraded to null.
	ExtractionFields *prometheus.CounterVec
}

// NewMetrics creates a metrics set on its own registry so independent
// service instances (and tests) never collide.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "racepull"
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		RendersInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "renders_in_flight",
			Help:      "Number of renders currently executing",
		}),
		RendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Total render attempts by outcome",
		}, []string{"outcome"}),
		RenderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Render latency",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 45},
		}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by outcome (hit/miss)",
		}, []string{"outcome"}),
		JobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Jobs by terminal status",
		}, []string{"status"}),
		JobsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_active",
			Help:      "Jobs currently processing",
		}),
		URLsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "urls_processed_total",
			Help:      "Processed URLs by per-record status",
		}, []string{"status"}),
		ExtractionFields: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_fields_total",
			Help:      "Field extraction outcomes (matched/null) per field",
		}, []string{"field", "outcome"}),
	}
}

// ObserveRender records one render attempt.
func (m *Metrics) ObserveRender(duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.RendersTotal.WithLabelValues(outcome).Inc()
	m.RenderDuration.Observe(duration.Seconds())
}

// Handler serves this metrics set in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for test gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
