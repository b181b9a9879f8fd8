// Package metrics exports Prometheus collectors for the scrape pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wishlist_scraper"

// Metrics holds the scraper's Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ScrapeRequests *prometheus.CounterVec
	ScrapeDuration prometheus.Histogram
	CacheLookups   *prometheus.CounterVec
	FetchAttempts  *prometheus.CounterVec
	RateLimited    *prometheus.CounterVec
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ScrapeRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrape_requests_total",
			Help:      "Scrape requests by outcome",
		}, []string{"outcome"}),
		ScrapeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scrape_duration_seconds",
			Help:      "Time to serve a scrape request, cache hits included",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Product cache lookups by result",
		}, []string{"result"}),
		FetchAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Upstream fetch attempts by outcome",
		}, []string{"outcome"}),
		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by a rate-limit policy",
		}, []string{"policy"}),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveScrape records the outcome and latency of one scrape request
func (m *Metrics) ObserveScrape(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ScrapeRequests.WithLabelValues(outcome).Inc()
	m.ScrapeDuration.Observe(elapsed.Seconds())
}

// ObserveCacheLookup records a product cache hit or miss
func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveFetchAttempt records a single upstream attempt
func (m *Metrics) ObserveFetchAttempt(outcome string) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(outcome).Inc()
}

// ObserveRateLimited records a request denied by the named policy
func (m *Metrics) ObserveRateLimited(policy string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(policy).Inc()
}
