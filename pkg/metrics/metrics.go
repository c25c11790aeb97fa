package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "todo_api"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by method, route and status."},
		[]string{"method", "route", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)
	TodoOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "todo_operations_total", Help: "Store operations by name and result."},
		[]string{"operation", "result"},
	)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_lookups_total", Help: "Read cache lookups by result (hit, miss)."},
		[]string{"result"},
	)
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "events_published_total", Help: "Todo events handed to Kafka by result."},
		[]string{"result"},
	)
	EventsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "events_consumed_total", Help: "Todo events consumed by type."},
		[]string{"type"},
	)
	RateLimitRejected = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Requests rejected by the rate limiter."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(HTTPRequests)
	reg.MustRegister(HTTPRequestDuration)
	reg.MustRegister(TodoOperations)
	reg.MustRegister(CacheLookups)
	reg.MustRegister(EventsPublished)
	reg.MustRegister(EventsConsumed)
	reg.MustRegister(RateLimitRejected)
}
