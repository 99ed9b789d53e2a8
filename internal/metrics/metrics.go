// Package metrics exposes Prometheus collectors for the product crawler.
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
	crawlerProductsTotal         *prometheus.CounterVec
	crawlerFetchDurationSeconds  *prometheus.HistogramVec
	crawlerRateLimitDelaySeconds prometheus.Histogram
	crawlerSitemapURLs           *prometheus.GaugeVec
	httpRequestsTotal            *prometheus.CounterVec
	httpRequestDurationSeconds   *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerProductsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_products_total",
				Help: "Product pages processed, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		crawlerFetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by site.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"site"},
		)

		crawlerRateLimitDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_rate_limit_delay_seconds",
				Help:    "Histogram of time spent waiting on the request rate limiter.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		)

		crawlerSitemapURLs = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crawler_sitemap_urls",
				Help: "URLs found in the last sitemap read, labeled by kind (all or product).",
			},
			[]string{"kind"},
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
	return promhttp.Handler()
}

// ObserveProduct counts one processed product page.
func ObserveProduct(pageURL, outcome string) {
	crawlerProductsTotal.WithLabelValues(SanitizeSite(pageURL), outcome).Inc()
}

// ObserveFetch records how long a page fetch took.
func ObserveFetch(pageURL string, duration time.Duration) {
	crawlerFetchDurationSeconds.WithLabelValues(SanitizeSite(pageURL)).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(duration time.Duration) {
	crawlerRateLimitDelaySeconds.Observe(duration.Seconds())
}

// SetSitemapURLs records the size of the sitemap and of its product subset.
func SetSitemapURLs(all, products int) {
	crawlerSitemapURLs.WithLabelValues("all").Set(float64(all))
	crawlerSitemapURLs.WithLabelValues("product").Set(float64(products))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
