// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	leadRequestsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_requests_submitted_total",
			Help: "Lead requests persisted, by targeting mode and entitlement path",
		},
		[]string{"mode", "free"},
	)

	automationNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_notifications_total",
			Help: "Outbound automation webhook attempts by result",
		},
		[]string{"result"},
	)

	paymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment order transitions by resulting status",
		},
		[]string{"status"},
	)

	proxyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_requests_total",
			Help: "JSON/CSV proxy requests by result",
		},
		[]string{"result"},
	)
)

func ObserveHTTP(method, path string, status int, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

func RecordLeadRequest(mode string, free bool) {
	leadRequestsSubmitted.WithLabelValues(mode, strconv.FormatBool(free)).Inc()
}

// RecordNotification takes "delivered" or "failed".
func RecordNotification(result string) {
	automationNotifications.WithLabelValues(result).Inc()
}

func RecordPayment(status string) {
	paymentsTotal.WithLabelValues(status).Inc()
}

func RecordProxy(result string) {
	proxyRequests.WithLabelValues(result).Inc()
}
