// Package metrics exports dispatch and cache counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcome labels.
const (
	OutcomeCacheHit = "cache_hit"
	OutcomeResolved = "resolved"
	OutcomeFailed   = "failed"
)

// Metrics holds the instrument set on a private registry, so tests can build
// as many instances as they like without duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
}

// New creates a registry with all assistant instruments registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "assistant",
				Subsystem: "dispatch",
				Name:      "requests_total",
				Help:      "Assistant actions by action and outcome.",
			},
			[]string{"action", "outcome"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "assistant",
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Result-cache lookups by cache and result.",
			},
			[]string{"cache", "result"},
		),
	}
	m.registry.MustRegister(m.requests, m.cacheLookups)
	return m
}

// RecordRequest counts one dispatched action.
func (m *Metrics) RecordRequest(action, outcome string) {
	m.requests.WithLabelValues(action, outcome).Inc()
}

// RecordCacheLookup counts one cache probe.
func (m *Metrics) RecordCacheLookup(cacheName string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(cacheName, result).Inc()
}

// Handler serves the registry for the /metrics route.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
