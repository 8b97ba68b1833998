package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent nook configuration stored as config.toml
// in the .nook/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Storage   StorageConfig   `toml:"storage"`
	API       APIConfig       `toml:"api"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Cache     CacheConfig     `toml:"cache"`
	Pattern   PatternConfig   `toml:"pattern"`
	Sync      SyncConfig      `toml:"sync"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Records   RecordsConfig   `toml:"records"`
	Events    EventsConfig    `toml:"events"`
	Log       LogConfig       `toml:"log"`
}

// StorageConfig holds the storage root. Vectors live under <root>/vectors.
type StorageConfig struct {
	Root string `toml:"root,omitempty"`
}

// APIConfig holds engine API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EmbeddingConfig holds embedding provider settings. Durations are Go
// duration strings such as "15s".
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	MaxChars   uint   `toml:"max_chars,omitempty"`
	Timeout    string `toml:"timeout,omitempty"`
}

// CacheConfig selects the key-value backend shared by the embedding cache
// and the pattern index.
type CacheConfig struct {
	Backend   string `toml:"backend,omitempty"`
	RedisAddr string `toml:"redis_addr,omitempty"`
	TTL       string `toml:"ttl,omitempty"`
}

// PatternConfig holds offline pattern matching settings.
type PatternConfig struct {
	Threshold float64 `toml:"threshold,omitempty"`
}

// SyncConfig holds sync queue settings.
type SyncConfig struct {
	MaxRetryAttempts uint   `toml:"max_retry_attempts,omitempty"`
	BackoffUnit      string `toml:"backoff_unit,omitempty"`
	SweepInterval    string `toml:"sweep_interval,omitempty"`
	Workers          uint   `toml:"workers,omitempty"`
}

// RetrievalConfig holds retrieval settings.
type RetrievalConfig struct {
	KeywordOnly bool `toml:"keyword_only,omitempty"`
}

// RecordsConfig selects the system of record.
type RecordsConfig struct {
	Driver string `toml:"driver,omitempty"`
	DSN    string `toml:"dsn,omitempty"`
}

// EventsConfig holds Kafka settings. An empty broker list disables events.
type EventsConfig struct {
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
	KafkaGroup   string `toml:"kafka_group,omitempty"`
}

// LogConfig selects the log encoder: "console" or "json".
type LogConfig struct {
	Format string `toml:"format,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = v
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.root": stringKey(func(c *Config) *string { return &c.Storage.Root }),
	"api.listen":   stringKey(func(c *Config) *string { return &c.API.Listen }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.api_key":    stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),
	"embedding.max_chars":  uintKey("embedding.max_chars", func(c *Config) *uint { return &c.Embedding.MaxChars }),
	"embedding.timeout":    durationKey("embedding.timeout", func(c *Config) *string { return &c.Embedding.Timeout }),

	"cache.backend":    stringKey(func(c *Config) *string { return &c.Cache.Backend }),
	"cache.redis_addr": stringKey(func(c *Config) *string { return &c.Cache.RedisAddr }),
	"cache.ttl":        durationKey("cache.ttl", func(c *Config) *string { return &c.Cache.TTL }),

	"pattern.threshold": {
		get: func(c *Config) string {
			if c.Pattern.Threshold == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Pattern.Threshold, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for pattern.threshold: %w", err)
			}
			if f <= 0 || f > 1 {
				return fmt.Errorf("invalid value for pattern.threshold: %v is outside (0, 1]", f)
			}
			c.Pattern.Threshold = f
			return nil
		},
	},

	"sync.max_retry_attempts": uintKey("sync.max_retry_attempts", func(c *Config) *uint { return &c.Sync.MaxRetryAttempts }),
	"sync.backoff_unit":       durationKey("sync.backoff_unit", func(c *Config) *string { return &c.Sync.BackoffUnit }),
	"sync.sweep_interval":     durationKey("sync.sweep_interval", func(c *Config) *string { return &c.Sync.SweepInterval }),
	"sync.workers":            uintKey("sync.workers", func(c *Config) *uint { return &c.Sync.Workers }),

	"retrieval.keyword_only": {
		get: func(c *Config) string { return strconv.FormatBool(c.Retrieval.KeywordOnly) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for retrieval.keyword_only: %w", err)
			}
			c.Retrieval.KeywordOnly = b
			return nil
		},
	},

	"records.driver": stringKey(func(c *Config) *string { return &c.Records.Driver }),
	"records.dsn":    stringKey(func(c *Config) *string { return &c.Records.DSN }),

	"events.kafka_brokers": stringKey(func(c *Config) *string { return &c.Events.KafkaBrokers }),
	"events.kafka_topic":   stringKey(func(c *Config) *string { return &c.Events.KafkaTopic }),
	"events.kafka_group":   stringKey(func(c *Config) *string { return &c.Events.KafkaGroup }),

	"log.format": stringKey(func(c *Config) *string { return &c.Log.Format }),
}
