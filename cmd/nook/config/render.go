package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/nook/pkg/cliui"
	"github.com/papercomputeco/nook/pkg/config"
)

// keyStyle fits the longest dotted key.
var keyStyle = cliui.KeyStyle.Width(26)

// openConfiger validates key (when non-empty) and resolves the config target.
func openConfiger(cmd *cobra.Command, key string) (*config.Configer, error) {
	if key != "" && !config.IsValidConfigKey(key) {
		return nil, fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	configDir, _ := cmd.Flags().GetString("config-dir")
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfger, nil
}

func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(target))
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

// renderValue formats a value for display, masking secrets and tagging
// values that differ from their default.
func renderValue(key, value string) string {
	if value == "" {
		return cliui.DimStyle.Render("<not set>")
	}

	out := cliui.ValueStyle.Render(config.DisplayValue(key, value))
	if def := config.DefaultConfigValue(key); def != value {
		if def == "" {
			def = "<not set>"
		}
		out += " " + cliui.DimStyle.Render("(default "+config.DisplayValue(key, def)+")")
	}
	return out
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}
