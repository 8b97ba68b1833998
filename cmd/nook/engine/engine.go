// Package engine assembles the nook retrieval stack from resolved
// configuration. It is shared by every command that touches the store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/config"
	"github.com/papercomputeco/nook/pkg/embeddings/cache"
	"github.com/papercomputeco/nook/pkg/embeddings/pattern"
	"github.com/papercomputeco/nook/pkg/embeddings/provider"
	"github.com/papercomputeco/nook/pkg/embeddings/resolve"
	embeddingutils "github.com/papercomputeco/nook/pkg/embeddings/utils"
	"github.com/papercomputeco/nook/pkg/eventstream"
	"github.com/papercomputeco/nook/pkg/eventstream/kafka"
	"github.com/papercomputeco/nook/pkg/eventstream/nop"
	"github.com/papercomputeco/nook/pkg/kv"
	"github.com/papercomputeco/nook/pkg/kv/badger"
	"github.com/papercomputeco/nook/pkg/kv/redis"
	"github.com/papercomputeco/nook/pkg/records/postgres"
	"github.com/papercomputeco/nook/pkg/records/sqldb"
	"github.com/papercomputeco/nook/pkg/records/sqlite"
	"github.com/papercomputeco/nook/pkg/retrieval"
	"github.com/papercomputeco/nook/pkg/vector/local"
)

const (
	// CacheDir is the badger directory under the storage root.
	CacheDir = "cache"

	// RecordsFile is the default sqlite system of record under the storage root.
	RecordsFile = "records.db"

	redisKeyPrefix = "nook:"
)

// Engine is the assembled retrieval stack.
type Engine struct {
	Store   *local.Store
	KV      kv.Store
	Cache   *cache.Cache
	Pattern *pattern.Index

	// Resolver is nil in keyword-only mode.
	Resolver *resolve.Resolver
	Adapter  *retrieval.Adapter

	logger *zap.Logger
}

// Open builds the engine described by cfg.
func Open(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	if cfg.Storage.Root == "" {
		return nil, errors.New("storage root is required")
	}

	store, err := local.NewStore(local.Config{
		Root:       cfg.Storage.Root,
		Dimensions: int(cfg.Embedding.Dimensions),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}

	kvStore, err := openKV(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	e := &Engine{
		Store:   store,
		KV:      kvStore,
		Cache:   cache.New(kvStore, cfg.CacheTTL(), logger),
		Pattern: pattern.New(kvStore, cfg.Pattern.Threshold, cfg.CacheTTL(), logger),
		logger:  logger,
	}

	if canEmbed(cfg) {
		embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
			ProviderType: cfg.Embedding.Provider,
			TargetURL:    cfg.Embedding.Target,
			Model:        cfg.Embedding.Model,
			APIKey:       cfg.Embedding.APIKey,
			Dimensions:   int(cfg.Embedding.Dimensions),
		})
		if err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("creating embedder: %w", err)
		}

		p, err := provider.New(embedder, provider.Config{
			Dimensions:     int(cfg.Embedding.Dimensions),
			MaxChars:       int(cfg.Embedding.MaxChars),
			RequestTimeout: cfg.EmbeddingTimeout(),
		}, logger)
		if err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("creating embedding provider: %w", err)
		}

		e.Resolver = resolve.New(e.Pattern, e.Cache, p, logger)
	}

	// A typed nil resolver must not reach the adapter as a non-nil interface.
	retrievalConfig := retrieval.Config{KeywordOnly: cfg.Retrieval.KeywordOnly}
	if e.Resolver != nil {
		e.Adapter = retrieval.New(store, e.Resolver, retrievalConfig, logger)
	} else {
		e.Adapter = retrieval.New(store, nil, retrievalConfig, logger)
	}

	logger.Debug("engine ready",
		zap.String("storage_root", cfg.Storage.Root),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("keyword_only", cfg.Retrieval.KeywordOnly),
		zap.Bool("embeddings", e.Resolver != nil),
	)

	return e, nil
}

// canEmbed reports whether an embedding provider can be built. Keyword-only
// deployments still embed on sync when the provider is usable.
func canEmbed(cfg *config.Config) bool {
	if !cfg.Retrieval.KeywordOnly {
		return true
	}
	return cfg.Embedding.Provider != embeddingutils.ProviderOpenAI || cfg.Embedding.APIKey != ""
}

func openKV(cfg *config.Config, logger *zap.Logger) (kv.Store, error) {
	switch cfg.Cache.Backend {
	case "redis":
		s, err := redis.NewStore(redis.Config{
			Address:   cfg.Cache.RedisAddr,
			KeyPrefix: redisKeyPrefix,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return s, nil
	case "badger", "":
		s, err := badger.NewStore(badger.Config{
			Dir: filepath.Join(cfg.Storage.Root, CacheDir),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("opening badger cache: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Cache.Backend)
	}
}

// Close releases the store and the KV backend.
func (e *Engine) Close() error {
	return errors.Join(e.Store.Close(), e.KV.Close())
}

// OpenRecords opens the configured system of record. It returns nil, nil when
// the driver is "none".
func OpenRecords(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sqldb.Store, error) {
	switch cfg.Records.Driver {
	case "none":
		return nil, nil
	case "postgres":
		return postgres.Open(ctx, cfg.Records.DSN, logger)
	case "sqlite", "":
		path := cfg.Records.DSN
		if path == "" {
			path = filepath.Join(cfg.Storage.Root, RecordsFile)
		}
		return sqlite.Open(ctx, path, logger)
	default:
		return nil, fmt.Errorf("unsupported records driver: %s", cfg.Records.Driver)
	}
}

// NewPublisher returns a kafka publisher when brokers are configured and a
// no-op publisher otherwise.
func NewPublisher(cfg *config.Config, logger *zap.Logger) (eventstream.Publisher, error) {
	brokers := cfg.KafkaBrokers()
	if len(brokers) == 0 {
		return nop.NewPublisher(logger), nil
	}

	p, err := kafka.NewPublisher(kafka.Config{
		Brokers: brokers,
		Topic:   cfg.Events.KafkaTopic,
	}, logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewSubscriber returns a kafka subscriber, or nil when no brokers are set.
func NewSubscriber(cfg *config.Config, logger *zap.Logger) (*kafka.Subscriber, error) {
	brokers := cfg.KafkaBrokers()
	if len(brokers) == 0 {
		return nil, nil
	}

	return kafka.NewSubscriber(kafka.Config{
		Brokers: brokers,
		Topic:   cfg.Events.KafkaTopic,
		GroupID: cfg.Events.KafkaGroup,
	}, logger)
}

// Describe returns a one-line summary of the retrieval mode.
func Describe(cfg *config.Config) string {
	if cfg.Retrieval.KeywordOnly {
		return "keyword only"
	}
	return strings.Join([]string{cfg.Embedding.Provider, cfg.Embedding.Model}, "/")
}
