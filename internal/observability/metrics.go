package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjstillabower/fred-dashboard-service/internal/traffic"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation.
	HTTPRequestsInFlight prometheus.Gauge

	// FRED API call rate by outcome. Watch for: error vs success ratio.
	FREDAPICallsTotal *prometheus.CounterVec

	// FRED latency per request. Full daily histories are large; p99 near the client timeout means truncation risk.
	FREDAPIDuration *prometheus.HistogramVec

	// FRED fetch failures by category (includes failures that never reached the network, e.g. missing key).
	FREDAPIErrorsTotal *prometheus.CounterVec

	// Cache lookups by result (hit, miss, expired). Hit rate = hit / sum.
	CacheLookupsTotal *prometheus.CounterVec

	// Cache backend errors by operation. Watch for: memcached connectivity.
	CacheErrorsTotal *prometheus.CounterVec

	// Fetches that joined an identical in-flight fetch instead of calling FRED.
	CoalescedFetchesTotal prometheus.Counter

	// Scheduled warm runs, failures and duration.
	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram

	// Dashboard views per series id. Label set is bounded by the indicator catalog.
	SeriesQueriesTotal *prometheus.CounterVec

	// Inline messages shown to users by kind. Watch for: missing_credential, transport.
	DashboardMessagesTotal *prometheus.CounterVec

	// Rate limit denials. Watch for: overload.
	RateLimitDeniedTotal prometheus.Counter

	// Circuit breaker state (0 closed, 1 open, 2 half_open) and transitions.
	CircuitBreakerState       prometheus.Gauge
	CircuitBreakerTransitions *prometheus.CounterVec

	rateLimitGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	FREDAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fredApiCallsTotal",
			Help: "Total number of FRED API calls",
		},
		[]string{"status"},
	)
	FREDAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fredApiDurationSeconds",
			Help:    "FRED API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20},
		},
		[]string{"status"},
	)
	FREDAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fredApiErrorsTotal",
			Help: "FRED fetch failures by category",
		},
		[]string{"category"},
	)
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheLookupsTotal",
			Help: "Observation cache lookups by result (hit, miss, expired)",
		},
		[]string{"result"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Observation cache backend errors by operation",
		},
		[]string{"operation"},
	)
	CoalescedFetchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coalescedFetchesTotal",
			Help: "Fetches served by sharing an identical in-flight FRED call",
		},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Total number of cache warming runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Cache warming runs with at least one failed series",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Cache warming run duration in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
	SeriesQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seriesQueriesTotal",
			Help: "Dashboard views by FRED series id",
		},
		[]string{"series"},
	)
	DashboardMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboardMessagesTotal",
			Help: "Inline dashboard messages by kind",
		},
		[]string{"kind"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	CircuitBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "FRED circuit breaker state: 0 closed, 1 open, 2 half_open",
		},
	)
	CircuitBreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "FRED circuit breaker state transitions",
		},
		[]string{"from", "to"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		FREDAPICallsTotal, FREDAPIDuration, FREDAPIErrorsTotal,
		CacheLookupsTotal, CacheErrorsTotal, CoalescedFetchesTotal,
		CacheWarmingTotal, CacheWarmingErrorsTotal, CacheWarmingDurationSeconds,
		SeriesQueriesTotal, DashboardMessagesTotal,
		RateLimitDeniedTotal,
		CircuitBreakerState, CircuitBreakerTransitions,
	)
}

// RegisterRateLimitGauges registers load and rejects gauges for the rate-limited path.
// Call from main after config load with cfg.OverloadWindow.
func RegisterRateLimitGauges(window time.Duration) {
	rateLimitGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRequestsInWindow",
					Help: "Requests hitting rate-limited path in sliding window; load/capacity planning",
				},
				func() float64 { return float64(traffic.RequestCount(window)) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "429 responses in sliding window; are we rejecting requests",
				},
				func() float64 { return float64(traffic.DenialCount(window)) },
			),
		)
	})
}

// RecordCircuitBreakerTransition updates the breaker gauge and transition counter.
func RecordCircuitBreakerTransition(from, to string, toValue int) {
	CircuitBreakerTransitions.WithLabelValues(from, to).Inc()
	CircuitBreakerState.Set(float64(toValue))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
