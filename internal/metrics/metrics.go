// Package metrics defines the Prometheus collectors for index builds, queries
// and the HTTP host, and exposes a scrape handler.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Query outcomes recorded by QueriesTotal.
const (
	OutcomeHit        = "hit"
	OutcomeZeroResult = "zero_score"
	OutcomeNoIndex    = "no_index"
	OutcomeError      = "error"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	QueriesTotal         *prometheus.CounterVec
	QueryLatency         prometheus.Histogram
	IndexBuildsTotal     *prometheus.CounterVec
	IndexBuildDuration   prometheus.Histogram
	IndexedDocuments     prometheus.Gauge
	VocabularySize       prometheus.Gauge
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csvqa_queries_total",
				Help: "Questions answered by outcome (hit, zero_score, no_index, error).",
			},
			[]string{"outcome"},
		),
		QueryLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "csvqa_query_latency_seconds",
				Help:    "Time to vectorize and rank one question.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		IndexBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csvqa_index_builds_total",
				Help: "Index builds by status (ok, empty_corpus, error).",
			},
			[]string{"status"},
		),
		IndexBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "csvqa_index_build_duration_seconds",
				Help:    "Time to build an index from a corpus.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
		),
		IndexedDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "csvqa_indexed_documents",
				Help: "Documents in the live index.",
			},
		),
		VocabularySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "csvqa_vocabulary_terms",
				Help: "Distinct terms in the live index.",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.QueriesTotal,
		m.QueryLatency,
		m.IndexBuildsTotal,
		m.IndexBuildDuration,
		m.IndexedDocuments,
		m.VocabularySize,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
	)
	return m
}

// ObserveQuery records one answered question.
func (m *Metrics) ObserveQuery(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(outcome).Inc()
	m.QueryLatency.Observe(elapsed.Seconds())
}

// ObserveBuild records one index build. docs and terms are only applied to
// the gauges when the build succeeded.
func (m *Metrics) ObserveBuild(status string, elapsed time.Duration, docs, terms int) {
	if m == nil {
		return
	}
	m.IndexBuildsTotal.WithLabelValues(status).Inc()
	m.IndexBuildDuration.Observe(elapsed.Seconds())
	if status == "ok" {
		m.IndexedDocuments.Set(float64(docs))
		m.VocabularySize.Set(float64(terms))
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
