// Package metrics exposes the agent's Prometheus instrumentation. A Metrics
// value owns its registry so tests and multiple workers never collide on the
// default registerer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	SessionsStarted prometheus.Counter
	SessionsClosed  *prometheus.CounterVec
	SessionsActive  prometheus.Gauge
	MatchConfidence *prometheus.HistogramVec
	Escalations     *prometheus.CounterVec
	BargeIns        prometheus.Counter
}

// New builds and registers the full metric set.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.SessionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "voiceagent_sessions_started_total",
			Help: "Total number of support sessions started",
		},
	)

	m.SessionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voiceagent_sessions_closed_total",
			Help: "Total number of support sessions closed",
		},
		[]string{"outcome"},
	)

	m.SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "voiceagent_sessions_active",
			Help: "Number of live support sessions",
		},
	)

	m.MatchConfidence = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voiceagent_match_confidence",
			Help:    "Confidence score of catalog match attempts",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"method"},
	)

	m.Escalations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voiceagent_escalations_total",
			Help: "Total number of AI fallback escalations",
		},
		[]string{"analysis"},
	)

	m.BargeIns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "voiceagent_barge_ins_total",
			Help: "Total number of caller interruptions during agent speech",
		},
	)

	m.registry.MustRegister(
		m.SessionsStarted,
		m.SessionsClosed,
		m.SessionsActive,
		m.MatchConfidence,
		m.Escalations,
		m.BargeIns,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// The methods below implement the session engine's Observer.

func (m *Metrics) SessionStarted() {
	m.SessionsStarted.Inc()
	m.SessionsActive.Inc()
}

func (m *Metrics) SessionClosed(escalated bool) {
	m.SessionsActive.Dec()
	outcome := "resolved"
	if escalated {
		outcome = "escalated"
	}
	m.SessionsClosed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) MatchScored(confidence float64, method string) {
	m.MatchConfidence.WithLabelValues(method).Observe(confidence)
}

func (m *Metrics) Escalated(aiUsable bool) {
	analysis := "unusable"
	if aiUsable {
		analysis = "usable"
	}
	m.Escalations.WithLabelValues(analysis).Inc()
}

func (m *Metrics) BargeIn() {
	m.BargeIns.Inc()
}
