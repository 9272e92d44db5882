package server

import (
	"net/http"

	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the auth counters
const (
	resultSuccess  = "success"
	resultRejected = "rejected"
	resultError    = "error"
)

// Metrics owns a private registry so that tests can build as many servers as
// they like without colliding on the default one.
type Metrics struct {
	registry      *prometheus.Registry
	logins        *prometheus.CounterVec
	registrations *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	bridge        *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Registration attempts by result.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_refresh_total",
			Help: "Explicit refresh token rotations by result.",
		}, []string{"result"}),
		bridge: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_bridge_total",
			Help: "Session bridge outcomes per request carrying a session cookie.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.logins,
		m.registrations,
		m.refreshes,
		m.bridge,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Login(result string) {
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) Registration(result string) {
	m.registrations.WithLabelValues(result).Inc()
}

func (m *Metrics) Refresh(result string) {
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) BridgeOutcome(result sessions.BridgeResult) {
	m.bridge.WithLabelValues(result.String()).Inc()
}
