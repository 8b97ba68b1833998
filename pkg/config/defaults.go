package config

const (
	defaultAPIListen = ":8790"

	defaultEmbeddingProvider   = "openai"
	defaultEmbeddingTarget     = "https://api.openai.com"
	defaultEmbeddingModel      = "text-embedding-3-small"
	defaultEmbeddingDimensions = 1536
	defaultEmbeddingMaxChars   = 8000
	defaultEmbeddingTimeout    = "15s"

	defaultCacheBackend   = "badger"
	defaultCacheRedisAddr = "localhost:6379"
	defaultCacheTTL       = "168h"

	defaultPatternThreshold = 0.85

	defaultSyncMaxRetryAttempts = 3
	defaultSyncBackoffUnit      = "5s"
	defaultSyncSweepInterval    = "15m"
	defaultSyncWorkers          = 2

	defaultRecordsDriver = "sqlite"

	defaultEventsTopic = "nook.record.changed"
	defaultEventsGroup = "nook-reconcile"

	defaultLogFormat = "console"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
			MaxChars:   defaultEmbeddingMaxChars,
			Timeout:    defaultEmbeddingTimeout,
		},
		Cache: CacheConfig{
			Backend:   defaultCacheBackend,
			RedisAddr: defaultCacheRedisAddr,
			TTL:       defaultCacheTTL,
		},
		Pattern: PatternConfig{
			Threshold: defaultPatternThreshold,
		},
		Sync: SyncConfig{
			MaxRetryAttempts: defaultSyncMaxRetryAttempts,
			BackoffUnit:      defaultSyncBackoffUnit,
			SweepInterval:    defaultSyncSweepInterval,
			Workers:          defaultSyncWorkers,
		},
		Records: RecordsConfig{
			Driver: defaultRecordsDriver,
		},
		Events: EventsConfig{
			KafkaTopic: defaultEventsTopic,
			KafkaGroup: defaultEventsGroup,
		},
		Log: LogConfig{
			Format: defaultLogFormat,
		},
	}
}
