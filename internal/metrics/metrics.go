// Package metrics provides Prometheus metrics for the clienthub backend.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the backend.
type Metrics struct {
	EventsTotal        *prometheus.CounterVec
	ReloadsTotal       *prometheus.CounterVec
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration *prometheus.HistogramVec
	ErrorsTotal        *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clienthub_workflow_events_total",
				Help: "Workflow events received by entity and outcome (reload/ignore/dropped).",
			},
			[]string{"entity", "outcome"},
		),
		ReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clienthub_reloads_total",
				Help: "Data reloads triggered by the refresh coordinator, by scope.",
			},
			[]string{"scope"},
		),
		EvaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clienthub_billing_evaluations_total",
				Help: "Billing readiness evaluations by result (ready/not_ready/error).",
			},
			[]string{"result"},
		),
		EvaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clienthub_billing_evaluation_duration_seconds",
				Help:    "Duration of billing readiness evaluations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clienthub_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		registry: reg,
	}

	reg.MustRegister(m.EventsTotal)
	reg.MustRegister(m.ReloadsTotal)
	reg.MustRegister(m.EvaluationsTotal)
	reg.MustRegister(m.EvaluationDuration)
	reg.MustRegister(m.ErrorsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordEvent increments the workflow-event counter.
func (m *Metrics) RecordEvent(entity, outcome string) {
	m.EventsTotal.WithLabelValues(entity, outcome).Inc()
}

// RecordReload increments the reload counter for a coordinator scope.
func (m *Metrics) RecordReload(scope string) {
	m.ReloadsTotal.WithLabelValues(scope).Inc()
}

// RecordEvaluation records one readiness evaluation.
func (m *Metrics) RecordEvaluation(result string, seconds float64) {
	m.EvaluationsTotal.WithLabelValues(result).Inc()
	m.EvaluationDuration.WithLabelValues(result).Observe(seconds)
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}
