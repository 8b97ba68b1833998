// Package redis provides a kv.Store backed by Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/kv"
)

// Config holds configuration for the redis store.
type Config struct {
	// Address is the host:port of the redis server.
	Address string

	// Password is optional.
	Password string

	// DB selects the logical database.
	DB int

	// KeyPrefix is prepended to every key.
	KeyPrefix string

	// DialTimeout bounds the initial connection check. Defaults to 5s.
	DialTimeout time.Duration
}

// Store implements kv.Store with Redis.
type Store struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewStore connects to redis and verifies the connection with PING.
func NewStore(c Config, logger *zap.Logger) (*Store, error) {
	if c.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	dialTimeout := c.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        c.Address,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: dialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Join(kv.ErrConnectionFailed, err)
	}

	logger.Debug("redis kv store connected", zap.String("address", c.Address))

	return &Store{client: client, keyPrefix: c.KeyPrefix, logger: logger}, nil
}

// NewStoreFromClient wraps an existing client.
func NewStoreFromClient(client *redis.Client, keyPrefix string, logger *zap.Logger) *Store {
	return &Store{client: client, keyPrefix: keyPrefix, logger: logger}
}

func (s *Store) prefixKey(key string) string {
	return s.keyPrefix + key
}

// Get retrieves a value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	value, err := s.client.Get(ctx, s.prefixKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
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

	var expiration time.Duration
	if ttl > 0 {
		expiration = ttl
	}

	if err := s.client.Set(ctx, s.prefixKey(key), value, expiration).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Scan walks keys with SCAN and fetches each value. Keys that expire between
// SCAN and GET are skipped.
func (s *Store) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	iter := s.client.Scan(ctx, 0, s.prefixKey(prefix)+"*", 100).Iterator()

	for iter.Next(ctx) {
		full := iter.Val()

		value, err := s.client.Get(ctx, full).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis get %q: %w", full, err)
		}

		if err := fn(strings.TrimPrefix(full, s.keyPrefix), value); err != nil {
			return err
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ kv.Store = (*Store)(nil)
