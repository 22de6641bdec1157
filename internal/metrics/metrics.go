// Package metrics exposes Prometheus collectors for the lead crawler.
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

// Lead outcomes recorded by ObserveLead.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

var (
	leadsProcessedTotal        *prometheus.CounterVec
	emailsInsertedTotal        prometheus.Counter
	pagesFetchedTotal          *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	staleClaimsResetTotal      prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	activeWorkers              prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		leadsProcessedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_processed_total",
				Help: "Total number of candidate leads processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		emailsInsertedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "leads_emails_inserted_total",
				Help: "Total number of new (firm, email) rows written.",
			},
		)

		pagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_pages_fetched_total",
				Help: "Total number of page fetches, labeled by fetcher and result.",
			},
			[]string{"fetcher", "result"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leads_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by fetcher.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"fetcher"},
		)

		staleClaimsResetTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "leads_stale_claims_reset_total",
				Help: "Total number of abandoned in_progress leads returned to pending.",
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

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "leads_active_workers",
				Help: "Number of workers currently processing a lead.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveLead increments the lead counter for the given outcome.
func ObserveLead(outcome string) {
	leadsProcessedTotal.WithLabelValues(outcome).Inc()
}

// ObserveEmailsInserted adds n newly stored addresses.
func ObserveEmailsInserted(n int) {
	if n > 0 {
		emailsInsertedTotal.Add(float64(n))
	}
}

// ObserveFetch records one page fetch.
func ObserveFetch(fetcher string, ok bool, duration time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	pagesFetchedTotal.WithLabelValues(fetcher, result).Inc()
	fetchDurationSeconds.WithLabelValues(fetcher).Observe(duration.Seconds())
}

// ObserveStaleReset adds n reclaimed leads.
func ObserveStaleReset(n int64) {
	if n > 0 {
		staleClaimsResetTotal.Add(float64(n))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}
