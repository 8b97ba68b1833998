package engine

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/nook/pkg/config"
)

// LoadConfig resolves the effective configuration for cmd: defaults, then
// config.toml from --config-dir, then NOOK_* env, then the registry flags
// named by flagKeys. The result is validated.
func LoadConfig(cmd *cobra.Command, flagKeys []string) (*config.Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, config.Flags, flagKeys)

	cfg := config.FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
