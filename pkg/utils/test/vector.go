package testutils

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/papercomputeco/nook/pkg/vector"
)

// ErrMockStore is returned by MockVectorStore when it is set to fail.
var ErrMockStore = errors.New("mock vector store failure")

// MockVectorStore is an in-memory vector.Store with injectable failures.
// Query returns Results verbatim; it does not score.
type MockVectorStore struct {
	mu      sync.Mutex
	vectors []vector.Vector

	// Results is returned by Query.
	Results []vector.Match

	// Fail makes every operation fail.
	Fail bool

	// LastQuery records the most recent query request.
	LastQuery vector.QueryRequest
}

func NewMockVectorStore() *MockVectorStore {
	return &MockVectorStore{}
}

func (m *MockVectorStore) Upsert(_ context.Context, vectors []vector.Vector) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return false
	}
	m.vectors = append(m.vectors, vectors...)
	return true
}

func (m *MockVectorStore) Query(_ context.Context, req vector.QueryRequest) ([]vector.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastQuery = req
	if m.Fail {
		return nil, ErrMockStore
	}
	return m.Results, nil
}

func (m *MockVectorStore) List(_ context.Context, namespaceID string) ([]vector.Vector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return nil, ErrMockStore
	}
	var out []vector.Vector
	for _, v := range m.vectors {
		if v.Metadata.NamespaceID == namespaceID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *MockVectorStore) DeleteOne(_ context.Context, _ string) (bool, error) {
	if m.Fail {
		return false, ErrMockStore
	}
	return false, nil
}

func (m *MockVectorStore) DeleteMany(_ context.Context, _ vector.Filter) (int, error) {
	if m.Fail {
		return 0, ErrMockStore
	}
	return 0, nil
}

func (m *MockVectorStore) DeleteIDs(_ context.Context, namespaceID string, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return 0, ErrMockStore
	}
	before := len(m.vectors)
	m.vectors = slices.DeleteFunc(m.vectors, func(v vector.Vector) bool {
		return v.Metadata.NamespaceID == namespaceID && slices.Contains(ids, v.ID)
	})
	return before - len(m.vectors), nil
}

func (m *MockVectorStore) Stats(_ context.Context) vector.Stats {
	return vector.Stats{PerNamespace: map[string]int{}}
}

func (m *MockVectorStore) Close() error {
	return nil
}

// Stored returns every vector passed to Upsert.
func (m *MockVectorStore) Stored() []vector.Vector {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]vector.Vector(nil), m.vectors...)
}

var _ vector.Store = (*MockVectorStore)(nil)
