// metrics — прикладные метрики Prometheus. Методы безопасны для nil,
// поэтому в тестах метрики можно не создавать.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "site_generator"

// Metrics — набор счётчиков и гистограмм сервиса.
type Metrics struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	generations     *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	gatewayRequests *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
}

// New создаёт метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route pattern and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Website generations by result.",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter, by scope.",
		}, []string{"scope"}),
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_gateway_requests_total",
			Help:      "AI gateway calls by operation and HTTP status (0 for transport errors).",
		}, []string{"operation", "status"}),
		gatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_gateway_request_duration_seconds",
			Help:      "AI gateway call latency by operation.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 45, 60, 90},
		}, []string{"operation"}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.generations,
		m.rateLimited,
		m.gatewayRequests,
		m.gatewayDuration,
	)

	return m
}

// ObserveHTTP учитывает завершённый HTTP-запрос.
func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}

	if route == "" {
		route = "unmatched"
	}

	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// Generation учитывает исход генерации: ok, invalid, unavailable, error.
func (m *Metrics) Generation(result string) {
	if m == nil {
		return
	}

	m.generations.WithLabelValues(result).Inc()
}

// RateLimited учитывает отказ ограничителя.
func (m *Metrics) RateLimited(scope string) {
	if m == nil {
		return
	}

	m.rateLimited.WithLabelValues(scope).Inc()
}

// GatewayCall учитывает вызов AI-шлюза.
func (m *Metrics) GatewayCall(operation string, status int, d time.Duration) {
	if m == nil {
		return
	}

	m.gatewayRequests.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	m.gatewayDuration.WithLabelValues(operation).Observe(d.Seconds())
}
