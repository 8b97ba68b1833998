// Package vector provides the types and storage interface for namespaced
// embedding vectors.
package vector

import "context"

// Vector is an embedding plus its identity and metadata.
// The ID is unique within the owning namespace (Metadata.NamespaceID).
type Vector struct {
	ID       string    `json:"id"`
	Values   []float32 `json:"values"`
	Metadata Metadata  `json:"metadata"`
}

// Match is a single query result.
type Match struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata"`
}

// QueryRequest describes a top-K similarity query.
type QueryRequest struct {
	// Vector is the query embedding.
	Vector []float32

	// Filter restricts candidates by exact metadata equality (AND semantics).
	// When Filter has no namespaceId, every namespace is scanned.
	Filter Filter

	// TopK caps the number of matches. Defaults to DefaultTopK when <= 0.
	TopK int

	// IncludeMetadata returns full metadata when true. When false only
	// namespaceId, type and source are kept and content is blanked.
	IncludeMetadata bool
}

// DefaultTopK is used when a QueryRequest leaves TopK unset.
const DefaultTopK = 10

// Stats summarizes the contents of a store.
type Stats struct {
	Namespaces   int            `json:"namespaces"`
	TotalVectors int            `json:"total_vectors"`
	PerNamespace map[string]int `json:"per_namespace"`
}

// Store handles storage and similarity search of namespaced vectors.
type Store interface {
	// Upsert stores vectors, replacing any existing vector with the same ID in
	// the same namespace. Malformed vectors are skipped. Returns false only if
	// a namespace could not be persisted.
	Upsert(ctx context.Context, vectors []Vector) bool

	// Query returns the TopK most similar vectors that satisfy the filter.
	Query(ctx context.Context, req QueryRequest) ([]Match, error)

	// List returns every vector of a namespace in insertion order.
	List(ctx context.Context, namespaceID string) ([]Vector, error)

	// DeleteOne removes the vector with the given ID from whichever namespace
	// holds it. Returns true if a vector was removed.
	DeleteOne(ctx context.Context, id string) (bool, error)

	// DeleteMany removes every vector that satisfies the filter and returns
	// the number removed.
	DeleteMany(ctx context.Context, filter Filter) (int, error)

	// DeleteIDs removes the vectors of one namespace whose IDs are listed and
	// returns the number removed. Other namespaces are never touched.
	DeleteIDs(ctx context.Context, namespaceID string, ids []string) (int, error)

	// Stats reports namespace and vector counts.
	Stats(ctx context.Context) Stats

	// Close releases any resources held by the store.
	Close() error
}
