package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Page outcomes used as metric labels.
const (
	outcomeStored     = "stored"
	outcomeLowValue   = "low_value"
	outcomeFailed     = "failed"
	outcomeDisallowed = "disallowed"
)

var (
	pagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "site_ingest",
			Name:      "pages_total",
			Help:      "Discovered URLs by processing outcome",
		},
		[]string{"outcome"},
	)

	chunksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "site_ingest",
			Name:      "chunks_total",
			Help:      "Chunks produced and persisted",
		},
	)

	pageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "site_ingest",
			Name:      "page_duration_seconds",
			Help:      "Time to fetch, chunk, embed and persist one page",
			Buckets:   prometheus.DefBuckets,
		},
	)

	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "site_ingest",
			Name:      "jobs_total",
			Help:      "Finished ingestion jobs by terminal status",
		},
		[]string{"status"},
	)
)
