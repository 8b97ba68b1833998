// Package ollama implements pkg/embeddings' Embedder client for Ollama's
// /api/embed endpoint.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/papercomputeco/nook/pkg/embeddings"
	"github.com/papercomputeco/nook/pkg/vector"
)

const (
	// DefaultEmbeddingModel is used when no model is configured.
	DefaultEmbeddingModel = "nomic-embed-text"

	// DefaultBaseURL is where a local Ollama daemon listens.
	DefaultBaseURL = "http://localhost:11434"

	name = "ollama"
)

// Embedder calls a local or remote Ollama daemon.
type Embedder struct {
	endpoint   string
	model      string
	dimensions int
	keepAlive  string
	httpClient *http.Client
}

// EmbedderConfig configures an Embedder. Zero values take the defaults.
type EmbedderConfig struct {
	BaseURL string
	Model   string

	// Dimensions asks models that support it for shorter vectors.
	Dimensions int

	// KeepAlive controls how long Ollama keeps the model loaded, e.g. "10m".
	KeepAlive string
}

type embedRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Truncate   bool   `json:"truncate"`
	Dimensions int    `json:"dimensions,omitempty"`
	KeepAlive  string `json:"keep_alive,omitempty"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// NewEmbedder returns an Embedder for cfg.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return &Embedder{
		endpoint:   base + "/api/embed",
		model:      model,
		dimensions: cfg.Dimensions,
		keepAlive:  cfg.KeepAlive,
		httpClient: &http.Client{},
	}, nil
}

// Embed returns the embedding of text. Input longer than the model context
// is truncated by Ollama rather than rejected.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := embedRequest{
		Model:      e.model,
		Input:      text,
		Truncate:   true,
		Dimensions: e.dimensions,
		KeepAlive:  e.keepAlive,
	}

	var resp embedResponse
	if err := embeddings.PostJSON(ctx, e.httpClient, name, e.endpoint, nil, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned for model %s", vector.ErrEmbedding, e.model)
	}
	return resp.Embeddings[0], nil
}

func (e *Embedder) Name() string {
	return name
}

// Close drops idle keep-alive connections.
func (e *Embedder) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
