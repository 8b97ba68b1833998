// Package openai implements pkg/embeddings' Embedder client for the OpenAI
// compatible /v1/embeddings API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/papercomputeco/nook/pkg/embeddings"
	"github.com/papercomputeco/nook/pkg/vector"
)

const (
	// DefaultEmbeddingModel produces 1536 dimensional vectors.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DefaultBaseURL is the OpenAI API URL.
	DefaultBaseURL = "https://api.openai.com"
)

// Embedder wraps an OpenAI compatible embeddings API.
type Embedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
}

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	// BaseURL is the API URL without the /v1 suffix.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is sent as a bearer token. Required.
	APIKey string

	// Model is the embedding model. Defaults to DefaultEmbeddingModel.
	Model string

	// Dimensions is forwarded to models that support shortened output.
	// Zero leaves the model default.
	Dimensions int
}

type embedRequest struct {
	Input      string `json:"input"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// NewEmbedder creates a new embedder. Request deadlines come from the
// caller's context.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return &Embedder{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      model,
		dimensions: cfg.Dimensions,
		httpClient: &http.Client{},
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := embedRequest{
		Input:      text,
		Model:      e.model,
		Dimensions: e.dimensions,
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+e.apiKey)

	var resp embedResponse
	if err := embeddings.PostJSON(ctx, e.httpClient, "openai", e.baseURL+"/v1/embeddings", header, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", vector.ErrEmbedding)
	}

	values := resp.Data[0].Embedding
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out, nil
}

// Name returns "openai".
func (e *Embedder) Name() string {
	return "openai"
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
