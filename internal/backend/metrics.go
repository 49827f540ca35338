package backend

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// backendReqs считает запросы к бэкенду по операции и коду ответа.
	// Код "error" означает, что ответ не был получен.
	backendReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodbot_backend_requests_total",
			Help: "Total number of requests issued to the mood backend.",
		},
		[]string{"operation", "code"},
	)

	backendLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moodbot_backend_request_duration_seconds",
			Help:    "Duration of mood backend requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(backendReqs, backendLat)
}

func observe(op string, status int, started time.Time) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	backendReqs.WithLabelValues(op, code).Inc()
	backendLat.WithLabelValues(op).Observe(time.Since(started).Seconds())
}
