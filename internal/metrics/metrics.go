package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EnrichmentsTotal counts per-fund enrichment outcomes. Outcome is one of
	// enriched, unresolved, failed, timeout.
	EnrichmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mfenrich_enrichments_total",
		Help: "Per-fund enrichment outcomes.",
	}, []string{"outcome"})

	// CacheHits counts enrichment cache hits, including cached failures.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mfenrich_cache_hits_total",
		Help: "Enrichment cache hits.",
	})

	// CacheMisses counts enrichment cache misses.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mfenrich_cache_misses_total",
		Help: "Enrichment cache misses.",
	})

	// RetriesTotal counts transient-failure retries in the batch runner.
	RetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mfenrich_retries_total",
		Help: "Transient enrichment failures that were retried.",
	})

	// BatchDuration observes wall time of whole enrichment batches.
	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mfenrich_batch_duration_seconds",
		Help:    "Wall time of enrichment batches.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 11),
	})
)
