// Package metrics provides Prometheus metrics for the coursex client.
//
// The client is short-lived, so metrics are not served over HTTP. They are
// written in the node-exporter textfile format with [Manager.WriteTextfile].
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds the client's collectors on a private registry.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	apiRequests      *prometheus.CounterVec
	apiLatency       *prometheus.HistogramVec
	sessionPhases    *prometheus.CounterVec
	ratingOperations *prometheus.CounterVec
	ratingRollbacks  *prometheus.CounterVec
}

// Option configures a [Manager].
type Option func(*Manager)

// WithNamespace sets the metric namespace (default "coursex").
func WithNamespace(ns string) Option {
	return func(m *Manager) { m.namespace = ns }
}

// WithHistogramBuckets sets latency buckets in seconds.
func WithHistogramBuckets(b []float64) Option {
	return func(m *Manager) { m.buckets = b }
}

// WithRegistry registers collectors on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) { m.registry = reg }
}

// NewManager creates a Manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "coursex",
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(m.registry)

	m.apiRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Requests sent to the course service by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	m.apiLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "Course service request latency",
		Buckets:   m.buckets,
	}, []string{"endpoint"})

	m.sessionPhases = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "session",
		Name:      "transitions_total",
		Help:      "Session phase transitions by target phase",
	}, []string{"phase"})

	m.ratingOperations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ratings",
		Name:      "operations_total",
		Help:      "Rating submissions and deletions by kind and outcome",
	}, []string{"kind", "outcome"})

	m.ratingRollbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ratings",
		Name:      "rollbacks_total",
		Help:      "Optimistic rating updates restored after a failed write",
	}, []string{"kind"})

	return m
}

// ObserveRequest records one API call.
func (m *Manager) ObserveRequest(endpoint, outcome string, elapsed time.Duration) {
	m.apiRequests.WithLabelValues(endpoint, outcome).Inc()
	m.apiLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// SessionTransition records the session entering phase.
func (m *Manager) SessionTransition(phase string) {
	m.sessionPhases.WithLabelValues(phase).Inc()
}

// RatingOperation records the outcome of a rating write.
func (m *Manager) RatingOperation(kind, outcome string) {
	m.ratingOperations.WithLabelValues(kind, outcome).Inc()
}

// RatingRollback records an optimistic update being restored.
func (m *Manager) RatingRollback(kind string) {
	m.ratingRollbacks.WithLabelValues(kind).Inc()
}

// Registry exposes the underlying registry.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
