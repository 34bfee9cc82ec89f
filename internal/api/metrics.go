package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the API server.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	loginsTotal     *prometheus.CounterVec
	activeTokensTTL prometheus.Gauge
}

// NewMetrics creates a metrics collector with its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "samsauth_http_requests_total",
			Help: "Total HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "samsauth_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		loginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "samsauth_logins_total",
			Help: "Login attempts by outcome (success, invalid_credentials, inactive, rate_limited).",
		}, []string{"outcome"}),
		activeTokensTTL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "samsauth_token_ttl_seconds",
			Help: "Configured access token lifetime in seconds.",
		}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.loginsTotal,
		m.activeTokensTTL,
	)

	return m
}

// RecordRequest records one completed HTTP request.
func (m *Metrics) RecordRequest(method, route, status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, route, status).Inc()
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordLogin records a login attempt outcome.
func (m *Metrics) RecordLogin(outcome string) {
	m.loginsTotal.WithLabelValues(outcome).Inc()
}

// SetTokenTTL exposes the configured token lifetime for dashboards.
func (m *Metrics) SetTokenTTL(ttl time.Duration) {
	m.activeTokensTTL.Set(ttl.Seconds())
}

// Handler returns the Prometheus scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
