package familysearch

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the client's exchanges,
// redirects, discovery fetches and rate limiting. It is safe for concurrent
// use and every Record method is a no-op on a nil collector.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	redirectsTotal *prometheus.CounterVec

	discoveryFetches *prometheus.CounterVec

	rateLimiterWait prometheus.Histogram

	errorsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(registry)
	mc := &MetricsCollector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "familysearch_requests_total",
				Help: "Total number of HTTP exchanges made",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "familysearch_request_duration_seconds",
				Help:    "Duration of HTTP exchanges in seconds, redirects included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "familysearch_requests_in_flight",
				Help: "Number of HTTP exchanges currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		redirectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "familysearch_redirects_total",
				Help: "Total number of redirect hops followed",
			},
			[]string{"method", "status_code"},
		),
		discoveryFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "familysearch_discovery_fetches_total",
				Help: "Total number of discovery document fetches",
			},
			[]string{"result"},
		),
		rateLimiterWait: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "familysearch_rate_limiter_wait_seconds",
				Help:    "Time spent waiting on the client-side rate limiter",
				Buckets: prometheus.DefBuckets,
			},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "familysearch_errors_total",
				Help: "Total number of errors returned to callers",
			},
			[]string{"kind", "method", "endpoint"},
		),
	}

	if reg, ok := registry.(*prometheus.Registry); ok {
		mc.registry = reg
	}

	return mc
}

// RecordRequest records request count and duration.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	statusCodeStr := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, statusCodeStr, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, statusCodeStr, endpoint).Observe(duration.Seconds())
}

// RecordRequestStart increments in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd decrements in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordRedirect counts one followed redirect hop.
func (mc *MetricsCollector) RecordRedirect(method string, statusCode int) {
	if mc == nil {
		return
	}

	mc.redirectsTotal.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
}

// RecordDiscoveryFetch counts a discovery fetch by outcome.
func (mc *MetricsCollector) RecordDiscoveryFetch(err error) {
	if mc == nil {
		return
	}

	result := "success"
	if err != nil {
		result = "error"
	}
	mc.discoveryFetches.WithLabelValues(result).Inc()
}

// RecordRateLimiterWait observes time blocked on the rate limiter.
func (mc *MetricsCollector) RecordRateLimiterWait(wait time.Duration) {
	if mc == nil {
		return
	}

	mc.rateLimiterWait.Observe(wait.Seconds())
}

// RecordError increments error counter by kind.
func (mc *MetricsCollector) RecordError(kind, method, endpoint string) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(kind, method, endpoint).Inc()
}

// GetRegistry exposes the underlying prometheus registry. It is nil when
// the collector was built on a Registerer that is not a *prometheus.Registry.
func (mc *MetricsCollector) GetRegistry() *prometheus.Registry {
	if mc == nil {
		return nil
	}
	return mc.registry
}
