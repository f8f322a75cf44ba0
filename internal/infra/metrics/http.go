package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(httpRequestsTotal, httpRequestLatency, resultFetchTotal, rateLimitedTotal) }

var httpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status code.",
	},
	[]string{"route", "method", "status"},
)

var httpRequestLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"route"},
)

var resultFetchTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "result_fetch_total",
		Help:      "Result retrievals by outcome.",
	},
	[]string{"outcome"}, // served, not_found, invalid_id, invalid_type, error
)

var rateLimitedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upload_rate_limited_total",
		Help:      "Uploads rejected by the rate limiter.",
	},
)

func ObserveHTTP(route, method string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpRequestLatency.WithLabelValues(route).Observe(d.Seconds())
}

func IncResultFetch(outcome string) {
	resultFetchTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncRateLimited() { rateLimitedTotal.Inc() }
