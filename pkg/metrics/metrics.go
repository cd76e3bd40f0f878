// Package metrics exposes Prometheus instrumentation for the services:
// request counts and latency by route, swap transitions by action and
// outcome, rating submissions and match queries.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns a registry and the collectors registered against it.
type Manager struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	swapTransitions     *prometheus.CounterVec
	ratingsSubmitted    prometheus.Counter
	matchQueries        prometheus.Counter
}

func NewManager(namespace string) *Manager {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Manager{
		registry: registry,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		swapTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_transitions_total",
			Help:      "Swap lifecycle transitions by action and outcome.",
		}, []string{"action", "outcome"}),
		ratingsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratings_submitted_total",
			Help:      "Accepted rating submissions.",
		}),
		matchQueries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_queries_total",
			Help:      "Discovery match queries served.",
		}),
	}
}

// Handler serves the /metrics endpoint for this manager's registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTransition records a swap transition attempt. outcome is "ok" or
// the failed error kind.
func (m *Manager) ObserveTransition(action, outcome string) {
	m.swapTransitions.WithLabelValues(action, outcome).Inc()
}

func (m *Manager) ObserveRating()     { m.ratingsSubmitted.Inc() }
func (m *Manager) ObserveMatchQuery() { m.matchQueries.Inc() }

// Middleware instruments a handler under a fixed route label.
func (m *Manager) Middleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		m.httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
