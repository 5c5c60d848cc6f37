// Package metrics exposes per-process SOCKS5 session counters for
// Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the session collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// SessionsActive is the current number of open client connections.
	SessionsActive prometheus.Gauge

	// SessionsTotal counts accepted client connections.
	SessionsTotal prometheus.Counter

	// SessionFailures counts sessions that ended early, by handshake stage.
	SessionFailures *prometheus.CounterVec

	// SniffRedirects counts sessions whose destination the sniffer replaced.
	SniffRedirects prometheus.Counter

	// RelayedBytes counts payload bytes by direction ("upstream" is client
	// to destination).
	RelayedBytes *prometheus.CounterVec
}

// New creates the collectors and registers them with reg unless reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "socks5_sessions_active",
			Help: "Current number of active SOCKS5 connections",
		}),
		SessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "socks5_sessions_total",
			Help: "Total number of SOCKS5 connections",
		}),
		SessionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socks5_session_failures_total",
			Help: "SOCKS5 sessions that failed, by stage",
		}, []string{"stage"}),
		SniffRedirects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "socks5_sniff_redirects_total",
			Help: "SOCKS5 sessions redirected by the traffic sniffer",
		}),
		RelayedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socks5_relayed_bytes_total",
			Help: "Payload bytes relayed, by direction",
		}, []string{"direction"}),
	}

	if reg != nil {
		reg.MustRegister(m.SessionsActive, m.SessionsTotal, m.SessionFailures, m.SniffRedirects, m.RelayedBytes)
	}
	return m
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
	m.SessionsTotal.Inc()
}

func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

func (m *Metrics) Failed(stage string) {
	if m == nil {
		return
	}
	m.SessionFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) Redirected() {
	if m == nil {
		return
	}
	m.SniffRedirects.Inc()
}

func (m *Metrics) Relayed(upstream, downstream int64) {
	if m == nil {
		return
	}
	m.RelayedBytes.WithLabelValues("upstream").Add(float64(upstream))
	m.RelayedBytes.WithLabelValues("downstream").Add(float64(downstream))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
