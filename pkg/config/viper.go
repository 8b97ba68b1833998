package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/nook/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the NOOK_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (NOOK_STORAGE_ROOT, NOOK_EMBEDDING_API_KEY, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
		v.SetDefault("storage.root", target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: NOOK_STORAGE_ROOT, NOOK_SYNC_BACKOFF_UNIT, etc.
	v.SetEnvPrefix("NOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.root", d.Storage.Root)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.max_chars", d.Embedding.MaxChars)
	v.SetDefault("embedding.timeout", d.Embedding.Timeout)

	// Cache
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	// Pattern
	v.SetDefault("pattern.threshold", d.Pattern.Threshold)

	// Sync
	v.SetDefault("sync.max_retry_attempts", d.Sync.MaxRetryAttempts)
	v.SetDefault("sync.backoff_unit", d.Sync.BackoffUnit)
	v.SetDefault("sync.sweep_interval", d.Sync.SweepInterval)
	v.SetDefault("sync.workers", d.Sync.Workers)

	// Retrieval
	v.SetDefault("retrieval.keyword_only", d.Retrieval.KeywordOnly)

	// Records
	v.SetDefault("records.driver", d.Records.Driver)
	v.SetDefault("records.dsn", d.Records.DSN)

	// Events
	v.SetDefault("events.kafka_brokers", d.Events.KafkaBrokers)
	v.SetDefault("events.kafka_topic", d.Events.KafkaTopic)
	v.SetDefault("events.kafka_group", d.Events.KafkaGroup)

	// Log
	v.SetDefault("log.format", d.Log.Format)
}

// FromViper resolves the effective configuration from v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			Root: v.GetString("storage.root"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			APIKey:     v.GetString("embedding.api_key"),
			Dimensions: v.GetUint("embedding.dimensions"),
			MaxChars:   v.GetUint("embedding.max_chars"),
			Timeout:    v.GetString("embedding.timeout"),
		},
		Cache: CacheConfig{
			Backend:   v.GetString("cache.backend"),
			RedisAddr: v.GetString("cache.redis_addr"),
			TTL:       v.GetString("cache.ttl"),
		},
		Pattern: PatternConfig{
			Threshold: v.GetFloat64("pattern.threshold"),
		},
		Sync: SyncConfig{
			MaxRetryAttempts: v.GetUint("sync.max_retry_attempts"),
			BackoffUnit:      v.GetString("sync.backoff_unit"),
			SweepInterval:    v.GetString("sync.sweep_interval"),
			Workers:          v.GetUint("sync.workers"),
		},
		Retrieval: RetrievalConfig{
			KeywordOnly: v.GetBool("retrieval.keyword_only"),
		},
		Records: RecordsConfig{
			Driver: v.GetString("records.driver"),
			DSN:    v.GetString("records.dsn"),
		},
		Events: EventsConfig{
			KafkaBrokers: v.GetString("events.kafka_brokers"),
			KafkaTopic:   v.GetString("events.kafka_topic"),
			KafkaGroup:   v.GetString("events.kafka_group"),
		},
		Log: LogConfig{
			Format: v.GetString("log.format"),
		},
	}
}
