package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/nook/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// CurrentV is the only config file version this build reads.
	CurrentV = 0
)

// keyOrder lists every key in configKeys in TOML section order.
var keyOrder = []string{
	"storage.root",
	"api.listen",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.api_key",
	"embedding.dimensions",
	"embedding.max_chars",
	"embedding.timeout",
	"cache.backend",
	"cache.redis_addr",
	"cache.ttl",
	"pattern.threshold",
	"sync.max_retry_attempts",
	"sync.backoff_unit",
	"sync.sweep_interval",
	"sync.workers",
	"retrieval.keyword_only",
	"records.driver",
	"records.dsn",
	"events.kafka_brokers",
	"events.kafka_topic",
	"events.kafka_group",
	"log.format",
}

// Configer reads and writes config.toml in a resolved nook directory.
type Configer struct {
	targetPath string
}

// NewConfiger resolves the nook directory (see dotdir.Manager.Target) and
// points at its config.toml, which need not exist yet.
func NewConfiger(override string) (*Configer, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return &Configer{}, nil
	}

	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return &Configer{targetPath: path}, nil
}

// GetTarget returns the config.toml path, or "" when none was resolved.
func (c *Configer) GetTarget() string {
	return c.targetPath
}

// ValidConfigKeys returns every supported key in TOML section order.
func ValidConfigKeys() []string {
	return slices.Clone(keyOrder)
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

// LoadConfig reads config.toml and fills every unset key with its default.
// A missing file yields NewDefaultConfig.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if errors.Is(err, os.ErrNotExist) {
		return NewDefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults copies the default of every key whose value is empty.
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()
	cfg.Version = defaults.Version

	for _, info := range configKeys {
		if info.get(cfg) != "" {
			continue
		}
		if def := info.get(defaults); def != "" {
			// Defaults always parse.
			_ = info.set(cfg, def)
		}
	}
}

// SaveConfig writes cfg to config.toml.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}
	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// GetConfigValue returns the effective value of key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, err := lookupKey(key)
	if err != nil {
		return "", err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}
	return info.get(cfg), nil
}

// SetConfigValue parses value for key and saves the config.
func (c *Configer) SetConfigValue(key, value string) error {
	return c.update(key, func(info configKeyInfo, cfg *Config) error {
		return info.set(cfg, value)
	})
}

// UnsetConfigValue restores key to its default and saves the config.
func (c *Configer) UnsetConfigValue(key string) error {
	return c.update(key, func(info configKeyInfo, cfg *Config) error {
		return info.set(cfg, info.get(NewDefaultConfig()))
	})
}

func (c *Configer) update(key string, fn func(configKeyInfo, *Config) error) error {
	info, err := lookupKey(key)
	if err != nil {
		return err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}
	if err := fn(info, cfg); err != nil {
		return err
	}
	return c.SaveConfig(cfg)
}

func lookupKey(key string) (configKeyInfo, error) {
	info, ok := configKeys[key]
	if !ok {
		return configKeyInfo{}, fmt.Errorf("unknown config key: %q", key)
	}
	return info, nil
}

// ParseConfigTOML decodes config.toml. Versions other than CurrentV are
// rejected.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}
	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}
	return cfg, nil
}

// DefaultConfigValue returns the default value of key, or the empty string
// for unknown keys and keys without a default.
func DefaultConfigValue(key string) string {
	info, ok := configKeys[key]
	if !ok {
		return ""
	}
	return info.get(NewDefaultConfig())
}

// IsSecretKey reports whether the value of key must not be echoed.
func IsSecretKey(key string) bool {
	return key == "embedding.api_key"
}

// DisplayValue returns value as it may be printed for key. Secrets keep only
// their last four characters.
func DisplayValue(key, value string) string {
	if !IsSecretKey(key) || value == "" {
		return value
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

// KeySection returns the TOML section of a dotted key.
func KeySection(key string) string {
	section, _, found := strings.Cut(key, ".")
	if !found {
		return ""
	}
	return section
}
