// Package metrics registers the service's Prometheus instrumentation.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "fairshare_"

var (
	registerOnce sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	allocations *prometheus.CounterVec

	notifications *prometheus.CounterVec
)

// Init registers all metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by route, method, and status code",
			},
			[]string{"route", "method", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		)
		allocations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "allocations_total",
				Help: "Split computations by method and result",
			},
			[]string{"method", "result"},
		)
		notifications = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Notification delivery attempts by kind and result",
			},
			[]string{"kind", "result"},
		)

		prometheus.MustRegister(httpRequests, httpLatency, allocations, notifications)
	})
}

// ObserveRequest records one completed HTTP request.
func ObserveRequest(route, method, status string, duration time.Duration) {
	if httpRequests == nil {
		return
	}
	httpRequests.WithLabelValues(route, method, status).Inc()
	httpLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// CountAllocation records one split computation.
func CountAllocation(method string, err error) {
	if allocations == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	allocations.WithLabelValues(method, result).Inc()
}

// CountNotification records one notification delivery attempt.
func CountNotification(kind string, err error) {
	if notifications == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	notifications.WithLabelValues(kind, result).Inc()
}
