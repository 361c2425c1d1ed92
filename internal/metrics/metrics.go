// Package metrics exposes Prometheus collectors for research runs.
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
	fetchTotal               *prometheus.CounterVec
	fetchBytesTotal          prometheus.Counter
	searchFailuresTotal      *prometheus.CounterVec
	runsTotal                *prometheus.CounterVec
	stageDurationSeconds     *prometheus.HistogramVec
	reasoningDurationSeconds *prometheus.HistogramVec
	cacheLookupsTotal        *prometheus.CounterVec
	crmWritesTotal           *prometheus.CounterVec
	httpRequestsTotal        *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dossier_fetch_total",
				Help: "Evidence fetches, labeled by method and outcome.",
			},
			[]string{"method", "outcome"},
		)

		fetchBytesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dossier_fetch_bytes_total",
				Help: "Bytes of content returned by successful fetches.",
			},
		)

		searchFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dossier_search_failures_total",
				Help: "Search queries that failed and were skipped, labeled by provider.",
			},
			[]string{"provider"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dossier_runs_total",
				Help: "Completed research runs, labeled by terminal status.",
			},
			[]string{"status"},
		)

		stageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dossier_stage_duration_seconds",
				Help:    "Histogram of pipeline stage latencies.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"stage"},
		)

		reasoningDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dossier_reasoning_duration_seconds",
				Help:    "Histogram of reasoning service call latencies.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 60},
			},
			[]string{"prompt", "outcome"},
		)

		cacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dossier_cache_lookups_total",
				Help: "Dossier cache lookups, labeled by result (hit, miss, stale, error).",
			},
			[]string{"result"},
		)

		crmWritesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dossier_crm_writes_total",
				Help: "CRM write-backs, labeled by mode and outcome.",
			},
			[]string{"mode", "outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dossier_http_requests_total",
				Help: "API requests, labeled by route and code.",
			},
			[]string{"route", "code"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveFetch counts one fetch. bytes is ignored for failures.
func ObserveFetch(method, outcome string, bytes int) {
	Init()
	fetchTotal.WithLabelValues(method, outcome).Inc()
	if bytes > 0 {
		fetchBytesTotal.Add(float64(bytes))
	}
}

// ObserveSearchFailure counts a skipped search query.
func ObserveSearchFailure(provider string) {
	Init()
	searchFailuresTotal.WithLabelValues(provider).Inc()
}

// ObserveRun counts a run that reached a terminal status.
func ObserveRun(status string) {
	Init()
	runsTotal.WithLabelValues(status).Inc()
}

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, d time.Duration) {
	Init()
	stageDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveReasoning records a reasoning call.
func ObserveReasoning(prompt, outcome string, d time.Duration) {
	Init()
	reasoningDurationSeconds.WithLabelValues(prompt, outcome).Observe(d.Seconds())
}

// ObserveCacheLookup counts a cache lookup result.
func ObserveCacheLookup(result string) {
	Init()
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveCRMWrite counts a CRM write-back attempt.
func ObserveCRMWrite(mode, outcome string) {
	Init()
	crmWritesTotal.WithLabelValues(mode, outcome).Inc()
}

// ObserveHTTPRequest counts an API request.
func ObserveHTTPRequest(route string, code int) {
	Init()
	httpRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
