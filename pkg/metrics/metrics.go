// Package metrics holds the prometheus collectors exported by nook.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Vector store metrics
	StoreUpserts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nook_store_upserts_total",
			Help: "Vectors written to the store",
		},
		[]string{"status"}, // status: stored/skipped
	)

	StoreSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nook_store_skipped_vectors_total",
			Help: "Vectors rejected at upsert",
		},
		[]string{"reason"}, // reason: missing_namespace/dimension
	)

	StorePersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nook_store_persist_failures_total",
			Help: "Namespace files that could not be written",
		},
	)

	StoreQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nook_store_query_duration_seconds",
			Help:    "Brute-force similarity query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
	)

	StoreInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nook_store_invalidations_total",
			Help: "Namespaces dropped from memory after an external file change",
		},
	)

	// Embedding metrics
	EmbeddingResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nook_embedding_resolutions_total",
			Help: "Embedding resolutions by the tier that answered",
		},
		[]string{"source"}, // source: pattern/cache/provider/unavailable
	)

	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nook_embedding_provider_requests_total",
			Help: "Calls to the remote embedding provider",
		},
		[]string{"provider", "status"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nook_embedding_provider_duration_seconds",
			Help:    "Remote embedding call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"provider"},
	)

	// Retrieval metrics
	RetrievalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nook_retrieval_requests_total",
			Help: "Retrieval calls by the mode that answered them",
		},
		[]string{"mode"}, // mode: semantic/keyword
	)

	// Sync metrics
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nook_sync_runs_total",
			Help: "Namespace synchronization runs by outcome",
		},
		[]string{"result"}, // result: success/retry/abandoned
	)

	SyncQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nook_sync_queue_depth",
			Help: "Namespaces waiting for a sync worker",
		},
	)

	SyncAbandoned = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nook_sync_abandoned_namespaces",
			Help: "Namespaces that exhausted their retries",
		},
	)
)
