// Package metrics exposes Prometheus counters for the credential lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace     = "assistant"
	authSubsystem = "auth"
)

// Outcome label values shared by callers
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// AuthMetrics records auth outcomes. A nil *AuthMetrics records nothing.
type AuthMetrics struct {
	operations    *prometheus.CounterVec
	notifications *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
}

// New creates the auth collectors and registers them with reg
func New(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: authSubsystem,
			Name:      "operations_total",
			Help:      "Auth operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: authSubsystem,
			Name:      "notifications_total",
			Help:      "Notification dispatch attempts by kind and status",
		}, []string{"kind", "status"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: authSubsystem,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter by purpose",
		}, []string{"purpose"}),
	}

	reg.MustRegister(m.operations, m.notifications, m.rateLimited)
	return m
}

// NewRegistry returns a registry preloaded with the Go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the registry in the Prometheus text format
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func (m *AuthMetrics) Operation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *AuthMetrics) Notification(kind string, sent bool) {
	if m == nil {
		return
	}
	status := "sent"
	if !sent {
		status = "failed"
	}
	m.notifications.WithLabelValues(kind, status).Inc()
}

func (m *AuthMetrics) RateLimited(purpose string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(purpose).Inc()
}
