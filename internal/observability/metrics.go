package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the centralized Prometheus instrumentation point,
// grounded on the teacher's internal/observability/metrics.go Metrics,
// trimmed to the components this spec actually runs: the stream
// coordinator, the policy gate, tool dispatch, and the telemetry bus.
type Metrics struct {
	// StreamRequests counts chat_stream calls by provider and outcome
	// (ok|first_token_timeout|overall_timeout|provider_error|fallback).
	StreamRequests *prometheus.CounterVec

	// StreamFirstTokenSeconds measures time-to-first-token latency.
	StreamFirstTokenSeconds *prometheus.HistogramVec

	// ToolDispatches counts tool executions by tool name and outcome.
	ToolDispatches *prometheus.CounterVec

	// GateDecisions counts policy-gate outcomes by kind
	// (allowed|blocked|needs_approval).
	GateDecisions *prometheus.CounterVec

	// TelemetryDropped counts events trimmed from the telemetry bus's
	// ring when it is at capacity.
	TelemetryDropped prometheus.Counter
}

// NewMetrics registers every Metrics collector against reg. Pass
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() in tests to avoid duplicate-registration panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		StreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dax_stream_requests_total",
			Help: "chat_stream calls by provider and outcome.",
		}, []string{"provider", "outcome"}),

		StreamFirstTokenSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dax_stream_first_token_seconds",
			Help:    "Time to first streamed token.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		}, []string{"provider"}),

		ToolDispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dax_tool_dispatches_total",
			Help: "Tool executions by tool name and outcome.",
		}, []string{"tool", "outcome"}),

		GateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dax_gate_decisions_total",
			Help: "Policy gate decisions by kind.",
		}, []string{"kind"}),

		TelemetryDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "dax_telemetry_dropped_total",
			Help: "Telemetry events trimmed from the bus ring at capacity.",
		}),
	}
}
