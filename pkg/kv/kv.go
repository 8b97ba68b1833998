// Package kv defines the key/value storage used by the embedding cache and
// the offline pattern index.
package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidKey is returned when a key is empty.
	ErrInvalidKey = errors.New("invalid key")

	// ErrConnectionFailed is returned when a backend cannot be reached.
	ErrConnectionFailed = errors.New("kv connection failed")
)

// Store is a byte-oriented key/value store with per-entry expiry.
type Store interface {
	// Get returns the value for key. The bool is false when the key is
	// missing or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. A ttl <= 0 never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Scan calls fn for every live key starting with prefix. Returning an
	// error from fn stops the scan and is returned.
	Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error

	// Close releases the backend.
	Close() error
}
