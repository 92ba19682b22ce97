// Package metrics exposes Prometheus metrics for job processing and the
// browser automation flow.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the registered collectors.
type Metrics struct {
	registry        prometheus.Registerer
	jobsTotal       *prometheus.CounterVec
	stepFailures    *prometheus.CounterVec
	publishDuration prometheus.Histogram
	jobsInFlight    prometheus.Gauge
}

// New registers and returns the metric set. A nil registerer falls back to
// the default registry.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		registry: reg,
		jobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Jobs reaching a terminal state, by status",
			},
			[]string{"status"},
		),
		stepFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publish_step_failures_total",
				Help:      "Publish attempt failures, by automation step",
			},
			[]string{"step"},
		),
		publishDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "publish_duration_seconds",
				Help:      "Duration of browser publish attempts",
				Buckets:   []float64{5, 15, 30, 60, 120, 300},
			},
		),
		jobsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "jobs_in_flight",
				Help:      "Jobs currently being processed (0 or 1 by design)",
			},
		),
	}

	reg.MustRegister(m.jobsTotal, m.stepFailures, m.publishDuration, m.jobsInFlight)
	return m
}

// JobFinished records a job reaching a terminal state.
func (m *Metrics) JobFinished(status string) {
	m.jobsTotal.WithLabelValues(status).Inc()
}

// StepFailed records a publish failure at the named automation step.
func (m *Metrics) StepFailed(step string) {
	m.stepFailures.WithLabelValues(step).Inc()
}

// ObservePublishDuration records how long a publish attempt took.
func (m *Metrics) ObservePublishDuration(d time.Duration) {
	m.publishDuration.Observe(d.Seconds())
}

// JobStarted marks a job entering processing.
func (m *Metrics) JobStarted() {
	m.jobsInFlight.Inc()
}

// JobDone marks the in-flight job finished.
func (m *Metrics) JobDone() {
	m.jobsInFlight.Dec()
}
