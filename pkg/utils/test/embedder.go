package testutils

import (
	"context"
	"errors"
	"sync"
)

// ErrMockEmbedding is returned by MockEmbedder when it is set to fail.
var ErrMockEmbedding = errors.New("mock embedding failure")

// MockEmbedder is a test embedder that returns predictable embeddings and
// counts its calls.
type MockEmbedder struct {
	mu         sync.Mutex
	embeddings map[string][]float32
	dimensions int
	fail       bool
	failOn     string
	calls      int
	lastInput  string
}

// NewMockEmbedder returns an embedder producing vectors of the given length.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	return &MockEmbedder{
		embeddings: make(map[string][]float32),
		dimensions: dimensions,
	}
}

// Set registers the embedding returned for text.
func (m *MockEmbedder) Set(text string, embedding []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embeddings[text] = embedding
}

// SetFailing makes every call fail until reset.
func (m *MockEmbedder) SetFailing(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// FailOn makes calls for exactly text fail.
func (m *MockEmbedder) FailOn(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn = text
}

// Calls returns how many times Embed was called.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastInput returns the text of the most recent call.
func (m *MockEmbedder) LastInput() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastInput
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.lastInput = text

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.fail || (m.failOn != "" && text == m.failOn) {
		return nil, ErrMockEmbedding
	}

	if emb, ok := m.embeddings[text]; ok {
		return emb, nil
	}

	// Default embedding: a deterministic spread over the configured length.
	out := make([]float32, m.dimensions)
	for i := range out {
		out[i] = float32((len(text)+i)%7+1) / 7
	}
	return out, nil
}

func (m *MockEmbedder) Name() string {
	return "mock"
}

func (m *MockEmbedder) Close() error {
	return nil
}
