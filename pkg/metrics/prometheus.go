package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetches     *prometheus.CounterVec
	cacheOps    *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	analysis    *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fximpact_price_fetches_total",
				Help: "Total number of upstream price fetches by outcome",
			},
			[]string{"ticker", "outcome"},
		),
		cacheOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fximpact_price_cache_total",
				Help: "Price cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fximpact_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		analysis: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fximpact_analysis_duration_seconds",
				Help:    "Duration of analysis operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordFetch records an upstream price fetch.
func (r *Recorder) RecordFetch(ticker, outcome string) {
	r.fetches.WithLabelValues(ticker, outcome).Inc()
}

// RecordCache records a cache hit or miss.
func (r *Recorder) RecordCache(outcome string) {
	r.cacheOps.WithLabelValues(outcome).Inc()
}

// RecordAnalysis records the duration of one analysis operation.
func (r *Recorder) RecordAnalysis(op string, seconds float64) {
	r.analysis.WithLabelValues(op).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
