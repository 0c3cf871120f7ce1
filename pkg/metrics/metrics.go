// Package metrics provides Prometheus metrics for the Sage service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MatchOutcomesTotal tracks match results by outcome and winning tier
	MatchOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "matching",
			Name:      "outcomes_total",
			Help:      "Total number of mention resolutions by outcome and method",
		},
		[]string{"outcome", "method"},
	)

	// MatchDuration tracks end-to-end match latency
	MatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sage",
			Subsystem: "matching",
			Name:      "duration_seconds",
			Help:      "Duration of mention resolution in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"outcome"},
	)

	// EmbeddingRequestsTotal tracks calls to the external embedding service
	EmbeddingRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "embedding",
			Name:      "requests_total",
			Help:      "Total number of embedding service calls by status",
		},
		[]string{"status"},
	)

	// EmbeddingCacheTotal tracks embedding cache lookups
	EmbeddingCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "embedding",
			Name:      "cache_lookups_total",
			Help:      "Total number of embedding cache lookups by result",
		},
		[]string{"result"},
	)

	// VectorTierFallbacksTotal counts Tier 2 degradations to the fuzzy tier
	VectorTierFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "matching",
			Name:      "vector_fallbacks_total",
			Help:      "Total number of times the vector tier was unavailable and matching fell back to fuzzy scoring",
		},
	)

	// ReviewTransitionsTotal tracks pending link reviews
	ReviewTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "review",
			Name:      "transitions_total",
			Help:      "Total number of pending link status transitions",
		},
		[]string{"status"},
	)

	// LinkMentionsTotal tracks link consumer results per mention
	LinkMentionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "linking",
			Name:      "mentions_total",
			Help:      "Total number of mentions processed by the link consumer by result",
		},
		[]string{"result"},
	)
)
