package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned when the openai provider is selected without
// an API key and retrieval is not keyword-only.
var ErrMissingAPIKey = errors.New("embedding.api_key is required for the openai provider unless retrieval.keyword_only is set")

// Validate reports configuration the engine cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Embedding.Provider {
	case "openai":
		if c.Embedding.APIKey == "" && !c.Retrieval.KeywordOnly {
			errs = append(errs, ErrMissingAPIKey)
		}
	case "ollama":
	default:
		errs = append(errs, fmt.Errorf("unknown embedding.provider %q (available: openai, ollama)", c.Embedding.Provider))
	}

	if c.Embedding.Dimensions == 0 {
		errs = append(errs, errors.New("embedding.dimensions must be positive"))
	}

	switch c.Cache.Backend {
	case "badger", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown cache.backend %q (available: badger, redis)", c.Cache.Backend))
	}

	switch c.Records.Driver {
	case "sqlite", "none":
	case "postgres":
		if c.Records.DSN == "" {
			errs = append(errs, errors.New("records.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown records.driver %q (available: sqlite, postgres, none)", c.Records.Driver))
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q (available: console, json)", c.Log.Format))
	}

	if c.Pattern.Threshold <= 0 || c.Pattern.Threshold > 1 {
		errs = append(errs, fmt.Errorf("pattern.threshold %v is outside (0, 1]", c.Pattern.Threshold))
	}

	for key, value := range map[string]string{
		"embedding.timeout":   c.Embedding.Timeout,
		"cache.ttl":           c.Cache.TTL,
		"sync.backoff_unit":   c.Sync.BackoffUnit,
		"sync.sweep_interval": c.Sync.SweepInterval,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

// EmbeddingTimeout returns the provider request timeout.
func (c *Config) EmbeddingTimeout() time.Duration {
	return parseDuration(c.Embedding.Timeout, defaultEmbeddingTimeout)
}

// CacheTTL returns the embedding cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return parseDuration(c.Cache.TTL, defaultCacheTTL)
}

// BackoffUnit returns the sync retry backoff unit.
func (c *Config) BackoffUnit() time.Duration {
	return parseDuration(c.Sync.BackoffUnit, defaultSyncBackoffUnit)
}

// SweepInterval returns the sync retry sweep interval.
func (c *Config) SweepInterval() time.Duration {
	return parseDuration(c.Sync.SweepInterval, defaultSyncSweepInterval)
}

// KafkaBrokers splits the comma-separated broker list.
func (c *Config) KafkaBrokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.Events.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(value, fallback string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}
