// Package configcmder provides the config command for managing persistent
// nook configuration stored in the .nook/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent nook configuration.

Configuration is stored as config.toml in the .nook/ directory and provides
default values for command flags. Environment variables (NOOK_*) override
file values and CLI flags always take precedence.

Keys use dotted notation matching the TOML section structure:
  storage.root, api.listen,
  embedding.provider, embedding.target, embedding.model, embedding.api_key,
  embedding.dimensions, embedding.max_chars, embedding.timeout,
  cache.backend, cache.redis_addr, cache.ttl, pattern.threshold,
  sync.max_retry_attempts, sync.backoff_unit, sync.sweep_interval, sync.workers,
  retrieval.keyword_only, records.driver, records.dsn,
  events.kafka_brokers, events.kafka_topic, events.kafka_group,
  log.format

Subcommands:
  nook config set <key> <value>    Set a configuration value
  nook config get <key>            Get a configuration value
  nook config unset <key>          Restore the default for a key
  nook config list                 List all configuration values

Examples:
  nook config set embedding.provider ollama
  nook config set embedding.model nomic-embed-text
  nook config get sync.backoff_unit
  nook config list --changed`

const configShortDesc string = "Manage persistent nook configuration"

// NewConfigCmd returns the config command and its subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newUnsetCmd())

	return cmd
}
