package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RampMetrics covers the advancement engine.
type RampMetrics struct {
	phaseDuration  *prometheus.HistogramVec
	failures       *prometheus.CounterVec
	activeSessions prometheus.Gauge
	restarts       *prometheus.CounterVec
	completions    *prometheus.CounterVec
}

func NewRampMetrics() *RampMetrics {
	return &RampMetrics{
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ramp_phase_duration_seconds",
				Help:    "Duration of one phase handler execution",
				Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"flow_type", "phase", "result"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ramp_failures_total",
				Help: "Recorded ramp failures by kind",
			},
			[]string{"flow_type", "phase", "kind"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ramp_active_sessions",
				Help: "Sessions currently being advanced by this process",
			},
		),
		restarts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ramp_restarts_total",
				Help: "Session tasks torn down after a transient error",
			},
			[]string{"flow_type", "phase"},
		),
		completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ramp_completions_total",
				Help: "Flows that reached success",
			},
			[]string{"flow_type"},
		),
	}
}

func (m *RampMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.phaseDuration,
		m.failures,
		m.activeSessions,
		m.restarts,
		m.completions,
	)
}

// ObservePhase records one handler run. result is advanced, waiting, retry or failed.
func (m *RampMetrics) ObservePhase(flowType, phase, result string, seconds float64) {
	m.phaseDuration.WithLabelValues(flowType, phase, result).Observe(seconds)
}

func (m *RampMetrics) RecordFailure(flowType, phase, kind string) {
	m.failures.WithLabelValues(flowType, phase, kind).Inc()
}

func (m *RampMetrics) RecordRestart(flowType, phase string) {
	m.restarts.WithLabelValues(flowType, phase).Inc()
}

func (m *RampMetrics) RecordCompletion(flowType string) {
	m.completions.WithLabelValues(flowType).Inc()
}

func (m *RampMetrics) SessionStarted() {
	m.activeSessions.Inc()
}

func (m *RampMetrics) SessionStopped() {
	m.activeSessions.Dec()
}
