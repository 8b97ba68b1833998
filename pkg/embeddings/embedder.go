// Package embeddings defines the remote text embedding clients nook calls
// when neither the offline pattern index nor the cache can answer.
package embeddings

import "context"

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Name identifies the provider in logs and metrics.
	Name() string

	// Close releases any resources held by the embedder.
	Close() error
}
