// Package metrics exposes Prometheus collectors for the service.
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
	fulltextFetchesTotal       *prometheus.CounterVec
	fulltextCacheLookupsTotal  *prometheus.CounterVec
	castsTotal                 prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		fulltextFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gua_fulltext_fetches_total",
				Help: "Full-text fetch attempts, labeled by source key and outcome.",
			},
			[]string{"source", "outcome"},
		)

		fulltextCacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gua_fulltext_cache_lookups_total",
				Help: "Full-text cache lookups, labeled by result.",
			},
			[]string{"result"},
		)

		castsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gua_casts_total",
				Help: "Total number of hexagrams cast.",
			},
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

// Handler returns an http.Handler exposing the Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch increments the fetch counter for one attempt outcome.
func ObserveFetch(source, outcome string) {
	Init()
	fulltextFetchesTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveCacheLookup records a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	Init()
	result := "miss"
	if hit {
		result = "hit"
	}
	fulltextCacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveCast increments the hexagram cast counter.
func ObserveCast() {
	Init()
	castsTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
