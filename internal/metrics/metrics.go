// Package metrics exposes Prometheus collectors for the crawler.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlerPagesTotal              *prometheus.CounterVec
	crawlerSkipsTotal              *prometheus.CounterVec
	crawlerFetchDurationSeconds    *prometheus.HistogramVec
	crawlerFetchRetriesTotal       prometheus.Counter
	crawlerOracleFallbacksTotal    *prometheus.CounterVec
	crawlerOracleWaitSeconds       prometheus.Histogram
	crawlerPersistenceFailureTotal *prometheus.CounterVec
	crawlerThrottleDelaySeconds    prometheus.Histogram
	crawlerFrontierPending         prometheus.Gauge
	crawlerFrontierVisited         prometheus.Gauge
	httpRequestsTotal              *prometheus.CounterVec
	httpRequestDurationSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_total",
				Help: "Total number of pages processed, labeled by outcome (scraped, failed).",
			},
			[]string{"outcome"},
		)

		crawlerSkipsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_soft_skips_total",
				Help: "Total number of pages skipped by the politeness guards, labeled by reason.",
			},
			[]string{"reason"},
		)

		crawlerFetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by status code.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"code"},
		)

		crawlerFetchRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_fetch_retries_total",
				Help: "Total number of fetch attempts that were retried.",
			},
		)

		crawlerOracleFallbacksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_oracle_fallbacks_total",
				Help: "Total number of oracle calls replaced by fallback values, labeled by operation.",
			},
			[]string{"operation"},
		)

		crawlerOracleWaitSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_oracle_wait_seconds",
				Help:    "Histogram of rate limiter waits before oracle calls.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		)

		crawlerPersistenceFailureTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_persistence_failures_total",
				Help: "Total number of failed writes, labeled by what was being written.",
			},
			[]string{"target"},
		)

		crawlerThrottleDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_throttle_delay_seconds",
				Help:    "Histogram of politeness delays applied between pages.",
				Buckets: []float64{0.5, 1, 1.5, 2, 5, 10, 30},
			},
		)

		crawlerFrontierPending = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_frontier_pending",
				Help: "Number of URLs waiting in the frontier.",
			},
		)

		crawlerFrontierVisited = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_frontier_visited",
				Help: "Number of URLs visited in this run.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests to the status server, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of status server latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObservePage counts a processed page by outcome.
func ObservePage(outcome string) {
	Init()
	crawlerPagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveSkip counts a soft skip by reason.
func ObserveSkip(reason string) {
	Init()
	if reason == "" {
		reason = "unknown"
	}
	crawlerSkipsTotal.WithLabelValues(reason).Inc()
}

// ObserveFetch records the latency of a completed fetch.
func ObserveFetch(code int, duration time.Duration) {
	Init()
	crawlerFetchDurationSeconds.WithLabelValues(strconv.Itoa(code)).Observe(duration.Seconds())
}

// ObserveFetchRetry counts a retried fetch attempt.
func ObserveFetchRetry() {
	Init()
	crawlerFetchRetriesTotal.Inc()
}

// ObserveOracleFallback counts an oracle call replaced by defaults.
func ObserveOracleFallback(operation string) {
	Init()
	crawlerOracleFallbacksTotal.WithLabelValues(operation).Inc()
}

// ObserveOracleWait records time spent waiting on the oracle rate limiter.
func ObserveOracleWait(duration time.Duration) {
	Init()
	crawlerOracleWaitSeconds.Observe(duration.Seconds())
}

// ObservePersistenceFailure counts a failed checkpoint, record or document
// write.
func ObservePersistenceFailure(target string) {
	Init()
	crawlerPersistenceFailureTotal.WithLabelValues(target).Inc()
}

// ObserveThrottle records a politeness delay.
func ObserveThrottle(delay time.Duration) {
	Init()
	crawlerThrottleDelaySeconds.Observe(delay.Seconds())
}

// ObserveFrontier sets the frontier gauges.
func ObserveFrontier(pending, visited int) {
	Init()
	crawlerFrontierPending.Set(float64(pending))
	crawlerFrontierVisited.Set(float64(visited))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
