// Package metrics exposes Prometheus collectors for cycles, transitions and the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "leaseflow"

// Metrics holds every collector the engine records into.
type Metrics struct {
	registry *prometheus.Registry

	CycleRunsTotal      *prometheus.CounterVec
	CycleDuration       *prometheus.HistogramVec
	StepItemsTotal      *prometheus.CounterVec
	TransitionsTotal    *prometheus.CounterVec
	ExceptionReports    *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SchedulerLockMisses prometheus.Counter
}

// New registers the collectors on a fresh registry together with the Go and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		CycleRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycle_runs_total",
				Help:      "Total number of lifecycle cycles by outcome",
			},
			[]string{"outcome"},
		),

		CycleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Duration of lifecycle cycles in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"scoped"},
		),

		StepItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycle_step_items_total",
				Help:      "Total number of items processed per cycle step by outcome",
			},
			[]string{"step", "outcome"},
		),

		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Total number of party transitions by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),

		ExceptionReports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exception_reports_total",
				Help:      "Total number of exception reports raised by rule",
			},
			[]string{"rule"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		SchedulerLockMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_lock_misses_total",
				Help:      "Total number of scheduled cycles skipped because another worker held the tenant lock",
			},
		),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// TrackCycle returns a function that records the duration and outcome of a cycle.
func (m *Metrics) TrackCycle(scoped bool) func(duration time.Duration, processed bool) {
	scopedLabel := "false"
	if scoped {
		scopedLabel = "true"
	}

	return func(duration time.Duration, processed bool) {
		m.CycleDuration.WithLabelValues(scopedLabel).Observe(duration.Seconds())

		outcome := "processed"
		if !processed {
			outcome = "aborted"
		}

		m.CycleRunsTotal.WithLabelValues(outcome).Inc()
	}
}

// RecordStepItem increments the item counter of a cycle step.
func (m *Metrics) RecordStepItem(step, outcome string) {
	m.StepItemsTotal.WithLabelValues(step, outcome).Inc()
}

// RecordTransition increments the counter of a transition operation.
func (m *Metrics) RecordTransition(operation, outcome string) {
	m.TransitionsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) RecordExceptionReport(rule string) {
	m.ExceptionReports.WithLabelValues(rule).Inc()
}

// RecordHTTPRequest records a served request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
