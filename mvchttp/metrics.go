package mvchttp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the dispatch metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace. Defaults to "lvc".
	Namespace string

	// Subsystem is the metrics subsystem.
	Subsystem string

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets of the dispatch duration.
	// Defaults to prometheus.DefBuckets.
	Buckets []float64

	// Registry receives the collectors. Defaults to
	// prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// Metrics records dispatch counts, durations and errors. A nil *Metrics
// records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

// NewMetrics registers the dispatch collectors:
//
//   - lvc_dispatch_total: dispatched requests by controller, action and status
//   - lvc_dispatch_duration_seconds: dispatch duration by controller and action
//   - lvc_dispatch_errors_total: dispatch failures by error kind
func NewMetrics(cfg MetricsConfig) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "lvc"
	}
	if cfg.Buckets == nil {
		cfg.Buckets = prometheus.DefBuckets
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(cfg.Registry)

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "dispatch_total",
			Help:        "Total number of dispatched requests",
			ConstLabels: cfg.ConstLabels,
		}, []string{"controller", "action", "status"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "dispatch_duration_seconds",
			Help:        "Request dispatch duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"controller", "action"}),

		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "dispatch_errors_total",
			Help:        "Total number of failed dispatches",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind"}),
	}
}

func (m *Metrics) observe(controller, action string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(controller, action, statusLabel(status)).Inc()
	m.duration.WithLabelValues(controller, action).Observe(d.Seconds())
}

func (m *Metrics) failed(kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(kind).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
