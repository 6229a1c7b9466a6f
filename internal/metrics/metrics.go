// Package metrics exposes Prometheus collectors for harvest runs.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchesTotal               *prometheus.CounterVec
	fetchBytesTotal            *prometheus.CounterVec
	fetchRetriesTotal          *prometheus.CounterVec
	headlessPromotionsTotal    *prometheus.CounterVec
	fetchRejectedTotal         *prometheus.CounterVec
	recordsTotal               *prometheus.CounterVec
	fieldFallbacksTotal        *prometheus.CounterVec
	runsTotal                  *prometheus.CounterVec
	rateLimitDelaysSeconds     *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. It is safe to call more than once.
func Init() {
	once.Do(func() {
		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipes_fetches_total",
				Help: "Page fetches, labeled by site and outcome.",
			},
			[]string{"site", "status"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipes_fetch_bytes_total",
				Help: "Bytes of markup fetched, labeled by site.",
			},
			[]string{"site"},
		)

		fetchRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipes_fetch_retries_total",
				Help: "Fetch attempts that were retried, labeled by site.",
			},
			[]string{"site"},
		)

		headlessPromotionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipes_headless_promotions_total",
				Help: "Static fetches re-done in the headless browser, labeled by site.",
			},
			[]string{"site"},
		)

		fetchRejectedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipes_fetch_rejected_total",
				Help: "URLs refused by the host policy before any request, labeled by site.",
			},
			[]string{"site"},
		)

		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipes_records_total",
				Help: "Recipe records processed, labeled by outcome (saved, skipped, failed).",
			},
			[]string{"outcome"},
		)

		fieldFallbacksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipes_field_fallbacks_total",
				Help: "Fields filled by a source other than the page hero, labeled by field and source.",
			},
			[]string{"field", "source"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipes_runs_total",
				Help: "Pipeline runs, labeled by mode and status.",
			},
			[]string{"mode", "status"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recipes_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"site"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite reduces a URL to its lowercase hostname, or "unknown".
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler exposing the registered collectors.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch counts one fetch of rawURL.
func ObserveFetch(rawURL, status string, bytesFetched int) {
	Init()
	site := SanitizeSite(rawURL)
	fetchesTotal.WithLabelValues(site, status).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(site).Add(float64(bytesFetched))
	}
}

// ObserveRetry counts one retried fetch attempt.
func ObserveRetry(rawURL string) {
	Init()
	fetchRetriesTotal.WithLabelValues(SanitizeSite(rawURL)).Inc()
}

// ObservePromotion counts a static fetch that was repeated headlessly.
func ObservePromotion(rawURL string) {
	Init()
	headlessPromotionsTotal.WithLabelValues(SanitizeSite(rawURL)).Inc()
}

// ObserveRejected counts a URL refused by the host policy.
func ObserveRejected(rawURL string) {
	Init()
	fetchRejectedTotal.WithLabelValues(SanitizeSite(rawURL)).Inc()
}

// ObserveRecord counts a record outcome.
func ObserveRecord(outcome string) {
	Init()
	recordsTotal.WithLabelValues(outcome).Inc()
}

// ObserveFallback counts a field resolved by a fallback source.
func ObserveFallback(field, source string) {
	Init()
	fieldFallbacksTotal.WithLabelValues(field, source).Inc()
}

// ObserveRun counts a finished run.
func ObserveRun(mode, status string) {
	Init()
	runsTotal.WithLabelValues(mode, status).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(site string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(site).Observe(duration.Seconds())
}

// ObserveHTTPRequest records one request served by the metrics endpoint.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
