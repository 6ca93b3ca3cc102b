// Package observability exposes Prometheus collectors for the suggestion engine.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "freetime_service"

var (
	rankDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ranker",
		Name:      "rank_duration_seconds",
		Help:      "Time spent scoring and sorting a catalog for one interval.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	suggestionsReturned = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ranker",
		Name:      "suggestions_returned",
		Help:      "Number of suggestions returned per ranking request.",
		Buckets:   []float64{0, 1, 2, 3, 4, 5},
	})

	adaptationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "adapter",
		Name:      "adaptations_total",
		Help:      "Adaptation requests grouped by outcome (adapted, not_needed, infeasible).",
	}, []string{"outcome"})

	slotsDetectedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "freetime",
		Name:      "slots_detected_total",
		Help:      "Free time slots found between busy periods.",
	})

	cacheCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Suggestion cache lookups grouped by result (hit, miss, error).",
	}, []string{"result"})

	lastSuggestionGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "persistence",
		Name:      "last_suggestions_saved_timestamp_seconds",
		Help:      "Unix timestamp of the most recent suggestion set persisted to a slot.",
	})
)

// Adaptation outcomes.
const (
	OutcomeAdapted    = "adapted"
	OutcomeNotNeeded  = "not_needed"
	OutcomeInfeasible = "infeasible"
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

func init() {
	prometheus.MustRegister(rankDuration, suggestionsReturned, adaptationCounter, slotsDetectedCounter, cacheCounter, lastSuggestionGauge)
}

// ObserveRank records latency and result size of a ranking call.
func ObserveRank(elapsed time.Duration, returned int) {
	rankDuration.Observe(elapsed.Seconds())
	suggestionsReturned.Observe(float64(returned))
}

// RecordAdaptation counts an adaptation outcome.
func RecordAdaptation(outcome string) {
	adaptationCounter.WithLabelValues(outcome).Inc()
}

// RecordSlotsDetected adds n detected slots.
func RecordSlotsDetected(n int) {
	if n <= 0 {
		return
	}
	slotsDetectedCounter.Add(float64(n))
}

// RecordCacheLookup counts a cache lookup result.
func RecordCacheLookup(result string) {
	cacheCounter.WithLabelValues(result).Inc()
}

// RecordSuggestionsSaved updates the persistence watermark gauge.
func RecordSuggestionsSaved(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastSuggestionGauge.Set(float64(ts.Unix()))
}
