package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry and domain counters.
type MetricsService struct {
	registry *prometheus.Registry

	httpDuration   *prometheus.HistogramVec
	httpTotal      *prometheus.CounterVec
	leaveDecisions *prometheus.CounterVec
}

// NewMetricsService constructs a registry with collectors registered.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	httpTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	leaveDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leave_decisions_total",
		Help: "Terminal leave request decisions by outcome.",
	}, []string{"outcome"})

	registry.MustRegister(httpDuration, httpTotal, leaveDecisions)

	return &MetricsService{
		registry:       registry,
		httpDuration:   httpDuration,
		httpTotal:      httpTotal,
		leaveDecisions: leaveDecisions,
	}
}

// ObserveHTTPRequest records a completed HTTP request.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	m.httpTotal.WithLabelValues(method, route, code).Inc()
}

// ObserveLeaveDecision counts a terminal decision outcome.
func (m *MetricsService) ObserveLeaveDecision(outcome string) {
	m.leaveDecisions.WithLabelValues(outcome).Inc()
}

// Handler exposes the registry in Prometheus exposition format.
func (m *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
