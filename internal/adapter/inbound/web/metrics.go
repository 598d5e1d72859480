package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for Checkout Gate.
// Pass to components that need to record metrics.
type Metrics struct {
	RequestsTotal          *prometheus.CounterVec
	RequestDuration        *prometheus.HistogramVec
	TransactionsSavedTotal prometheus.Counter
	ValidationFailedTotal  prometheus.Counter
	RateLimitedTotal       prometheus.Counter
	CSRFRejectedTotal      prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "checkoutgate",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "status"}, // status=ok/client_error/server_error
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "checkoutgate",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets, // 5ms to 10s
			},
			[]string{"method"},
		),
		TransactionsSavedTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "checkoutgate",
				Name:      "transactions_saved_total",
				Help:      "Total transactions persisted to the store",
			},
		),
		ValidationFailedTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "checkoutgate",
				Name:      "validation_failed_total",
				Help:      "Total transaction payloads rejected by validation",
			},
		),
		RateLimitedTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "checkoutgate",
				Name:      "rate_limited_total",
				Help:      "Total requests denied by the rate limiter",
			},
		),
		CSRFRejectedTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "checkoutgate",
				Name:      "csrf_rejected_total",
				Help:      "Total requests rejected by CSRF verification",
			},
		),
	}
}
