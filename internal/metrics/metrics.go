// Package metrics registers the Prometheus instrumentation. metrics.go
// carries the infrastructure metrics (HTTP, cache, database, Redis);
// application.go carries the composer domain metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the infrastructure-level Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal     prometheus.CounterVec
	HTTPRequestDuration   prometheus.HistogramVec
	HTTPRequestSize       prometheus.HistogramVec
	HTTPResponseSize      prometheus.HistogramVec
	HTTPActiveConnections prometheus.GaugeVec

	CacheHitsTotal         prometheus.CounterVec
	CacheMissesTotal       prometheus.CounterVec
	CacheOperationsTotal   prometheus.CounterVec
	CacheOperationDuration prometheus.HistogramVec

	RateLimitExceededTotal prometheus.CounterVec

	DatabaseQueryDuration   prometheus.HistogramVec
	DatabaseQueriesTotal    prometheus.CounterVec
	DatabaseConnectionsOpen prometheus.GaugeVec

	RedisOperationDuration prometheus.HistogramVec
	RedisOperationsTotal   prometheus.CounterVec
	RedisConnectionsOpen   prometheus.GaugeVec

	ErrorsTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

func counterVec(name, help string, labels ...string) prometheus.CounterVec {
	return *promauto.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
}

func gaugeVec(name, help string, labels ...string) prometheus.GaugeVec {
	return *promauto.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels)
}

func histogramVec(name, help string, buckets []float64, labels ...string) prometheus.HistogramVec {
	return *promauto.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets}, labels)
}

// Latency bucket presets. Request latencies span further than cache or
// Redis round trips, which sit comfortably under 100ms.
var (
	requestBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	queryBuckets   = []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5}
	fastOpBuckets  = []float64{.0001, .0005, .001, .005, .01, .05, .1}
)

// Initialize registers every infrastructure metric with the default
// registry. Idempotent.
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: counterVec("http_requests_total",
				"Total number of HTTP requests",
				"method", "path", "status"),
			HTTPRequestDuration: histogramVec("http_request_duration_seconds",
				"HTTP request latency in seconds", requestBuckets,
				"method", "path", "status"),
			HTTPRequestSize: histogramVec("http_request_size_bytes",
				"HTTP request body size in bytes", prometheus.ExponentialBuckets(100, 10, 7),
				"method", "path"),
			HTTPResponseSize: histogramVec("http_response_size_bytes",
				"HTTP response size in bytes", prometheus.ExponentialBuckets(100, 10, 7),
				"method", "path", "status"),
			HTTPActiveConnections: gaugeVec("http_active_connections",
				"Number of currently active HTTP connections",
				"method", "path"),

			CacheHitsTotal: counterVec("cache_hits_total",
				"Total number of cache hits",
				"cache_name"),
			CacheMissesTotal: counterVec("cache_misses_total",
				"Total number of cache misses",
				"cache_name"),
			CacheOperationsTotal: counterVec("cache_operations_total",
				"Total number of cache operations",
				"operation", "cache_name"),
			CacheOperationDuration: histogramVec("cache_operation_duration_seconds",
				"Cache operation latency in seconds", fastOpBuckets,
				"operation", "cache_name"),

			RateLimitExceededTotal: counterVec("rate_limit_exceeded_total",
				"Total number of rate limit violations",
				"endpoint", "method"),

			DatabaseQueryDuration: histogramVec("database_query_duration_seconds",
				"Database query latency in seconds", queryBuckets,
				"query_type", "table"),
			DatabaseQueriesTotal: counterVec("database_queries_total",
				"Total number of database queries",
				"query_type", "table", "status"),
			DatabaseConnectionsOpen: gaugeVec("database_connections_open",
				"Number of currently open database connections",
				"database"),

			RedisOperationDuration: histogramVec("redis_operation_duration_seconds",
				"Redis operation latency in seconds", fastOpBuckets,
				"operation", "key_pattern"),
			RedisOperationsTotal: counterVec("redis_operations_total",
				"Total number of Redis operations",
				"operation", "status"),
			RedisConnectionsOpen: gaugeVec("redis_connections_open",
				"Number of currently open Redis connections",
				"instance"),

			ErrorsTotal: counterVec("errors_total",
				"Total number of errors by type",
				"error_type", "endpoint"),
		}
	})
	return instance
}

// Get returns the global metrics instance, initializing on first use.
func Get() *Metrics {
	if instance == nil {
		return Initialize()
	}
	return instance
}
