// Package metrics exposes counters for authentication outcomes and rate-limit rejections.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dtroode/socialmesh/internal/apperror"
)

const namespace = "mesh"

// Metrics holds the service counters.
type Metrics struct {
	registry       *prometheus.Registry
	authOperations *prometheus.CounterVec
	rateRejections *prometheus.CounterVec
}

// New creates counters registered on a fresh registry together with Go runtime collectors.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		authOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_operations_total",
			Help:      "Session lifecycle operations by outcome.",
		}, []string{"operation", "result"}),
		rateRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by a rate limiter tier.",
		}, []string{"tier"}),
	}

	for _, c := range []prometheus.Collector{
		m.authOperations,
		m.rateRejections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// ObserveAuth counts one operation. A nil err is recorded as "ok", otherwise the error kind.
func (m *Metrics) ObserveAuth(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(apperror.KindOf(err))
	}
	m.authOperations.WithLabelValues(operation, result).Inc()
}

// ObserveRejection counts one request rejected by tier.
func (m *Metrics) ObserveRejection(tier string) {
	if m == nil {
		return
	}
	m.rateRejections.WithLabelValues(tier).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
