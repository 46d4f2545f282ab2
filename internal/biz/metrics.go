package biz

import (
	"net/http"

	"FailoverGuard/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FailoverMetrics holds the controller's Prometheus collectors on a private registry.
type FailoverMetrics struct {
	ActiveReplica    *prometheus.GaugeVec
	ReplicaHealthy   *prometheus.GaugeVec
	FailureCount     *prometheus.GaugeVec
	Switches         *prometheus.CounterVec
	BothDownTicks    prometheus.Counter
	ProbeLatency     *prometheus.HistogramVec
	PersistErrors    prometheus.Counter
	TickPanics       prometheus.Counter
	AlertsSent       *prometheus.CounterVec
	AlertsSuppressed *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewFailoverMetrics creates and registers all collectors.
func NewFailoverMetrics() *FailoverMetrics {
	registry := prometheus.NewRegistry()

	m := &FailoverMetrics{
		ActiveReplica: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "failoverguard_active_replica",
			Help: "1 for the replica currently serving traffic, 0 otherwise",
		}, []string{"replica"}),
		ReplicaHealthy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "failoverguard_replica_healthy",
			Help: "Result of the last probe per replica (1 healthy, 0 unhealthy)",
		}, []string{"replica"}),
		FailureCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "failoverguard_consecutive_failures",
			Help: "Consecutive failed probes per replica",
		}, []string{"replica"}),
		Switches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "failoverguard_switches_total",
			Help: "Active replica switches by direction",
		}, []string{"from", "to"}),
		BothDownTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "failoverguard_both_down_ticks_total",
			Help: "Ticks on which both replicas were unhealthy",
		}),
		ProbeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "failoverguard_probe_duration_seconds",
			Help:    "Probe round-trip latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"replica", "outcome"}),
		PersistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "failoverguard_state_persist_errors_total",
			Help: "Failed attempts to persist the failover state",
		}),
		TickPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "failoverguard_tick_panics_total",
			Help: "Ticks aborted by a recovered panic",
		}),
		AlertsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "failoverguard_alerts_total",
			Help: "Alerts handed to the dispatcher by type and result",
		}, []string{"type", "result"}),
		AlertsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "failoverguard_alerts_suppressed_total",
			Help: "Alerts dropped inside the suppression window",
		}, []string{"type"}),
		registry: registry,
	}

	registry.MustRegister(
		m.ActiveReplica, m.ReplicaHealthy, m.FailureCount, m.Switches, m.BothDownTicks,
		m.ProbeLatency, m.PersistErrors, m.TickPanics, m.AlertsSent, m.AlertsSuppressed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry exposes the registry for tests.
func (m *FailoverMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics HTTP handler.
func (m *FailoverMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// observeTick publishes the per-tick gauges.
func (m *FailoverMetrics) observeTick(state model.FailoverState, primary, secondary model.ProbeResult) {
	for _, role := range []model.ReplicaRole{model.RolePrimary, model.RoleSecondary} {
		active := 0.0
		if state.ActiveReplica == role {
			active = 1
		}
		m.ActiveReplica.WithLabelValues(string(role)).Set(active)
		m.FailureCount.WithLabelValues(string(role)).Set(float64(state.FailureCount(role)))
	}

	for _, p := range []model.ProbeResult{primary, secondary} {
		healthy, outcome := 0.0, "failure"
		if p.Healthy {
			healthy, outcome = 1, "success"
		}
		m.ReplicaHealthy.WithLabelValues(string(p.Role)).Set(healthy)
		m.ProbeLatency.WithLabelValues(string(p.Role), outcome).Observe(p.Latency.Seconds())
	}
}
