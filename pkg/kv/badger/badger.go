// Package badger provides a kv.Store backed by BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/kv"
)

// Config holds configuration for the badger store.
type Config struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps everything in memory. Used by tests.
	InMemory bool

	// KeyPrefix is prepended to every key.
	KeyPrefix string

	// GCInterval controls how often the value log is garbage collected.
	// Zero disables GC.
	GCInterval time.Duration
}

// Store implements kv.Store with BadgerDB.
type Store struct {
	db        *badger.DB
	keyPrefix string
	logger    *zap.Logger

	gcStop chan struct{}
	gcWg   sync.WaitGroup
}

// NewStore opens the database described by c.
func NewStore(c Config, logger *zap.Logger) (*Store, error) {
	if !c.InMemory && c.Dir == "" {
		return nil, fmt.Errorf("badger directory is required")
	}

	opts := badger.DefaultOptions(c.Dir)
	if c.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Join(kv.ErrConnectionFailed, err)
	}

	s := &Store{
		db:        db,
		keyPrefix: c.KeyPrefix,
		logger:    logger,
		gcStop:    make(chan struct{}),
	}

	if c.GCInterval > 0 && !c.InMemory {
		s.startGC(c.GCInterval)
	}

	logger.Debug("badger kv store opened",
		zap.String("dir", c.Dir),
		zap.Bool("in_memory", c.InMemory),
	)
	return s, nil
}

func (s *Store) startGC(interval time.Duration) {
	s.gcWg.Add(1)
	go func() {
		defer s.gcWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.gcStop:
				return
			case <-ticker.C:
				for {
					if err := s.db.RunValueLogGC(0.5); err != nil {
						break
					}
				}
			}
		}
	}()
}

func (s *Store) prefixKey(key string) []byte {
	return []byte(s.keyPrefix + key)
}

// Get retrieves a value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.prefixKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores a value, expiring it after ttl when ttl > 0.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return kv.ErrInvalidKey
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(s.prefixKey(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// Scan iterates over every live key with the given prefix.
func (s *Store) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.prefixKey(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			key := strings.TrimPrefix(string(item.Key()), s.keyPrefix)
			if err := fn(key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close stops value log GC and closes the database.
func (s *Store) Close() error {
	close(s.gcStop)
	s.gcWg.Wait()
	return s.db.Close()
}

var _ kv.Store = (*Store)(nil)
