// Package cache memoizes text embeddings in a kv.Store keyed by normalized
// text.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/kv"
	"github.com/papercomputeco/nook/pkg/vector"
)

const (
	// KeyPrefix namespaces cache entries inside the kv store.
	KeyPrefix = "embedding:"

	// DefaultTTL is how long an entry stays valid.
	DefaultTTL = 7 * 24 * time.Hour

	// maxKeyBytes bounds the raw text kept in a key. Longer texts are keyed
	// by their sha256.
	maxKeyBytes = 1024
)

var errShortEntry = errors.New("cache entry shorter than its header")

// Entry is a cached embedding.
type Entry struct {
	Embedding  []float32
	InsertedAt time.Time
}

// Stats counts cache lookups.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Cache stores embeddings with a TTL. Backend errors are logged and reported
// as misses.
type Cache struct {
	store  kv.Store
	ttl    time.Duration
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache on top of store. A non-positive ttl uses DefaultTTL.
func New(store kv.Store, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl, logger: logger}
}

// Normalize lowercases text, trims it and collapses runs of whitespace.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Key returns the kv key for text.
func Key(text string) string {
	return PrefixedKey(KeyPrefix, text)
}

// PrefixedKey returns prefix followed by the normalized text, or by its
// sha256 when the normalized text is longer than 1024 bytes.
func PrefixedKey(prefix, text string) string {
	normalized := Normalize(text)
	if len(normalized) > maxKeyBytes {
		sum := sha256.Sum256([]byte(normalized))
		return prefix + "sha256:" + hex.EncodeToString(sum[:])
	}
	return prefix + normalized
}

// Get returns the cached embedding for text.
func (c *Cache) Get(ctx context.Context, text string) ([]float32, bool) {
	entry, ok := c.GetEntry(ctx, text)
	if !ok {
		return nil, false
	}
	return entry.Embedding, true
}

// GetEntry returns the cached entry for text including its insertion time.
func (c *Cache) GetEntry(ctx context.Context, text string) (Entry, bool) {
	if Normalize(text) == "" {
		return Entry{}, false
	}

	raw, ok, err := c.store.Get(ctx, Key(text))
	if err != nil {
		c.logger.Warn("embedding cache get", zap.Error(err))
	}
	if err != nil || !ok {
		c.misses.Add(1)
		return Entry{}, false
	}

	entry, err := decodeEntry(raw)
	if err != nil {
		c.logger.Warn("embedding cache entry corrupt", zap.Error(err))
		c.misses.Add(1)
		return Entry{}, false
	}

	c.hits.Add(1)
	return entry, true
}

// Set stores emb for text.
func (c *Cache) Set(ctx context.Context, text string, emb []float32) {
	if Normalize(text) == "" || len(emb) == 0 {
		return
	}

	raw := encodeEntry(Entry{Embedding: emb, InsertedAt: time.Now()})
	if err := c.store.Set(ctx, Key(text), raw, c.ttl); err != nil {
		c.logger.Warn("embedding cache set", zap.Error(err))
	}
}

// Stats returns hit and miss counts since the cache was created.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// encodeEntry lays out an entry as 8 bytes of unix millis followed by the
// little-endian embedding.
func encodeEntry(e Entry) []byte {
	buf := make([]byte, 8, 8+len(e.Embedding)*4)
	binary.LittleEndian.PutUint64(buf, uint64(e.InsertedAt.UnixMilli())) // #nosec G115 -- timestamps are positive
	return append(buf, vector.EncodeFloat32s(e.Embedding)...)
}

func decodeEntry(raw []byte) (Entry, error) {
	if len(raw) < 8 {
		return Entry{}, errShortEntry
	}
	emb, err := vector.DecodeFloat32s(raw[8:])
	if err != nil {
		return Entry{}, err
	}
	millis := int64(binary.LittleEndian.Uint64(raw[:8])) // #nosec G115 -- written by encodeEntry
	return Entry{Embedding: emb, InsertedAt: time.UnixMilli(millis)}, nil
}
