// Package api provides the engine HTTP API: document storage, retrieval,
// namespace deletion, sync scheduling and statistics.
package api

import (
	"context"
	"net/http"

	"github.com/papercomputeco/nook/pkg/reconcile"
	"github.com/papercomputeco/nook/pkg/retrieval"
	"github.com/papercomputeco/nook/pkg/vector"
)

// Retriever is the retrieval façade the API exposes.
type Retriever interface {
	StoreDocument(ctx context.Context, doc vector.Document, embedding []float32) bool
	RetrieveWithMode(ctx context.Context, namespaceID, text string, limit int) ([]vector.Document, retrieval.Mode)
	DeleteBusinessData(ctx context.Context, namespaceID string) bool
}

// Syncer schedules namespace synchronizations.
type Syncer interface {
	Enqueue(namespaceID string, immediate bool) bool
	Stats(ctx context.Context) reconcile.Stats
}

// StoreStats reports vector store statistics.
type StoreStats interface {
	Stats(ctx context.Context) vector.Stats
}

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8790")
	ListenAddr string

	Retriever Retriever

	// Syncer is optional; without it the sync endpoints answer 503.
	Syncer Syncer

	Store StoreStats

	// MCPHandler is mounted at /mcp when set.
	MCPHandler http.Handler
}
