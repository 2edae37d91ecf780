// Package metrics exposes Prometheus collectors for the extraction service.
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
	extractionsTotal           *prometheus.CounterVec
	extractionDurationSeconds  *prometheus.HistogramVec
	widgetDetectionsTotal      *prometheus.CounterVec
	reviewsHarvestedTotal      *prometheus.CounterVec
	harvestPagesTotal          *prometheus.CounterVec
	reviewFallbacksTotal       *prometheus.CounterVec
	headlessPromotionsTotal    prometheus.Counter
	circuitBreakerState        *prometheus.GaugeVec
	rateLimitDelaysSeconds     *prometheus.HistogramVec
	aiRetriesTotal             *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		extractionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "revcopy_extractions_total",
				Help: "Total number of product extractions, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		extractionDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "revcopy_extraction_duration_seconds",
				Help:    "Histogram of product extraction wall-clock time.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"include_reviews"},
		)

		widgetDetectionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "revcopy_widget_detections_total",
				Help: "Review widget detections on product pages, labeled by widget kind.",
			},
			[]string{"kind"},
		)

		reviewsHarvestedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "revcopy_reviews_harvested_total",
				Help: "Reviews returned by the harvester, labeled by source and rating category.",
			},
			[]string{"source", "category"},
		)

		harvestPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "revcopy_harvest_pages_total",
				Help: "Review API pages requested, labeled by result.",
			},
			[]string{"result"},
		)

		reviewFallbacksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "revcopy_review_fallbacks_total",
				Help: "Times the harvester degraded to synthetic reviews, labeled by reason.",
			},
			[]string{"reason"},
		)

		headlessPromotionsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "revcopy_headless_promotions_total",
				Help: "Product pages re-rendered headlessly for widget detection.",
			},
		)

		circuitBreakerState = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "revcopy_circuit_breaker_state",
				Help: "Current state of a circuit breaker (0=closed, 1=half-open, 2=open).",
			},
			[]string{"name"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "revcopy_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"domain"},
		)

		aiRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "revcopy_ai_retries_total",
				Help: "Retried AI provider calls, labeled by provider.",
			},
			[]string{"provider"},
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
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

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveExtraction records the outcome and duration of one facade call.
func ObserveExtraction(site, outcome string, includeReviews bool, duration time.Duration) {
	Init()
	extractionsTotal.WithLabelValues(SanitizeSite(site), outcome).Inc()
	extractionDurationSeconds.WithLabelValues(strconv.FormatBool(includeReviews)).Observe(duration.Seconds())
}

// ObserveWidgetDetection counts a widget detection result; kind is "none" when nothing matched.
func ObserveWidgetDetection(kind string) {
	Init()
	widgetDetectionsTotal.WithLabelValues(kind).Inc()
}

// ObserveHarvestedReviews adds n reviews for the source and category.
func ObserveHarvestedReviews(source, category string, n int) {
	if n <= 0 {
		return
	}
	Init()
	if category == "" {
		category = "none"
	}
	reviewsHarvestedTotal.WithLabelValues(source, category).Add(float64(n))
}

// ObserveHarvestPage counts a review API page by result.
func ObserveHarvestPage(result string) {
	Init()
	harvestPagesTotal.WithLabelValues(result).Inc()
}

// ObserveFallback counts a degradation to synthetic reviews.
func ObserveFallback(reason string) {
	Init()
	reviewFallbacksTotal.WithLabelValues(reason).Inc()
}

// ObserveHeadlessPromotion counts a headless re-render.
func ObserveHeadlessPromotion() {
	Init()
	headlessPromotionsTotal.Inc()
}

// SetBreakerState exports a circuit breaker state.
func SetBreakerState(name string, state float64) {
	Init()
	circuitBreakerState.WithLabelValues(name).Set(state)
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveAIRetry counts a retried AI provider call.
func ObserveAIRetry(provider string) {
	Init()
	aiRetriesTotal.WithLabelValues(provider).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
