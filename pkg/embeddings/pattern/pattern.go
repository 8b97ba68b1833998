// Package pattern keeps an index of frequently seen query texts with their
// embeddings so near-duplicate queries can be answered without a remote
// embedding call.
package pattern

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/embeddings/cache"
	"github.com/papercomputeco/nook/pkg/kv"
	"github.com/papercomputeco/nook/pkg/vector"
)

const (
	// KeyPrefix namespaces patterns inside the kv store.
	KeyPrefix = "pattern:"

	// DefaultThreshold is the similarity a stored pattern must exceed to be
	// reused.
	DefaultThreshold = 0.85
)

// Pattern is one tracked query text.
type Pattern struct {
	Pattern     string    `json:"pattern"`
	Embedding   []float32 `json:"embedding,omitempty"`
	Signature   []float32 `json:"signature"`
	Frequency   int       `json:"frequency"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Index finds and tracks patterns. Patterns expire ttl after they were
// last tracked.
type Index struct {
	store     kv.Store
	threshold float64
	ttl       time.Duration
	logger    *zap.Logger

	// mu serializes read-modify-write in Track.
	mu sync.Mutex
}

// New creates an index. A non-positive threshold uses DefaultThreshold and a
// non-positive ttl uses cache.DefaultTTL.
func New(store kv.Store, threshold float64, ttl time.Duration, logger *zap.Logger) *Index {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &Index{store: store, threshold: threshold, ttl: ttl, logger: logger}
}

// Threshold returns the similarity a match must exceed.
func (i *Index) Threshold() float64 {
	return i.threshold
}

// FindClosest returns the stored pattern whose signature is most similar to
// text, provided the similarity is strictly above the threshold and the
// pattern carries an embedding.
func (i *Index) FindClosest(ctx context.Context, text string) (*Pattern, float64, bool) {
	query := Signature(text)
	if vector.IsZero(query) {
		return nil, 0, false
	}

	var (
		best      *Pattern
		bestScore float64
	)

	err := i.store.Scan(ctx, KeyPrefix, func(key string, value []byte) error {
		var p Pattern
		if err := json.Unmarshal(value, &p); err != nil {
			i.logger.Debug("skipping corrupt pattern", zap.String("key", key), zap.Error(err))
			return nil
		}
		if len(p.Embedding) == 0 {
			return nil
		}

		score := vector.CosineSimilarity(query, p.Signature)
		if best == nil || score > bestScore {
			best, bestScore = &p, score
		}
		return nil
	})
	if err != nil {
		i.logger.Warn("scanning patterns", zap.Error(err))
		return nil, 0, false
	}

	if best == nil || bestScore <= i.threshold {
		return nil, bestScore, false
	}
	return best, bestScore, true
}

// Track records one occurrence of text. A non-empty emb replaces the stored
// embedding. Failures are logged and swallowed.
func (i *Index) Track(ctx context.Context, text string, emb []float32) {
	normalized := cache.Normalize(text)
	if normalized == "" {
		return
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.track(ctx, normalized, emb); err != nil {
		i.logger.Warn("tracking pattern", zap.String("pattern", normalized), zap.Error(err))
	}
}

func (i *Index) track(ctx context.Context, normalized string, emb []float32) error {
	key := cache.PrefixedKey(KeyPrefix, normalized)

	var p Pattern
	raw, ok, err := i.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("decoding pattern: %w", err)
		}
	} else {
		p = Pattern{Pattern: normalized, Signature: Signature(normalized)}
	}

	p.Frequency++
	p.LastUpdated = time.Now()
	if len(emb) > 0 {
		p.Embedding = emb
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding pattern: %w", err)
	}
	return i.store.Set(ctx, key, data, i.ttl)
}

// Get returns the stored pattern for text.
func (i *Index) Get(ctx context.Context, text string) (*Pattern, bool) {
	raw, ok, err := i.store.Get(ctx, cache.PrefixedKey(KeyPrefix, text))
	if err != nil || !ok {
		return nil, false
	}
	var p Pattern
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return &p, true
}

// Top returns up to limit patterns ordered by frequency, most frequent first.
func (i *Index) Top(ctx context.Context, limit int) ([]Pattern, error) {
	var out []Pattern
	err := i.store.Scan(ctx, KeyPrefix, func(_ string, value []byte) error {
		var p Pattern
		if err := json.Unmarshal(value, &p); err != nil {
			return nil
		}
		p.Embedding = nil
		p.Signature = nil
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Frequency != out[b].Frequency {
			return out[a].Frequency > out[b].Frequency
		}
		return out[a].Pattern < out[b].Pattern
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
