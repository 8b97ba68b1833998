package vector

import "errors"

var (
	// ErrNotFound is returned when a vector is not found in the store.
	ErrNotFound = errors.New("vector not found")

	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrDimensionMismatch is returned when a vector's length does not match
	// the store's configured dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrMissingNamespace is returned when a vector intended for storage has
	// no namespaceId in its metadata.
	ErrMissingNamespace = errors.New("vector has no namespace")

	// ErrPersist is returned when a namespace could not be written to disk.
	ErrPersist = errors.New("persisting namespace failed")
)
