package embedding

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	embedCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "site_ingest",
			Name:      "embed_calls_total",
			Help:      "Total embedding API calls",
		},
		[]string{"status"},
	)

	embedDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "site_ingest",
			Name:      "embed_duration_seconds",
			Help:      "Duration of embedding API calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	embedFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "site_ingest",
			Name:      "embed_fallback_total",
			Help:      "Texts that received a zero vector instead of an embedding",
		},
		[]string{"reason"},
	)
)
