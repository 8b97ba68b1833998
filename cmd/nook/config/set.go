package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/nook/pkg/cliui"
)

const setLongDesc string = `Set a configuration value.

Writes the key to .nook/config.toml after checking that the value
parses for its type (integers, durations, booleans, thresholds in
(0, 1]). The previous value is printed next to the new one.

Examples:
  nook config set embedding.provider ollama
  nook config set embedding.target http://localhost:11434
  nook config set embedding.dimensions 768
  nook config set sync.backoff_unit 10s`

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "set <key> <value>",
		Short:             "Set a configuration value",
		Long:              setLongDesc,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			cfger, err := openConfiger(cmd, key)
			if err != nil {
				return err
			}

			previous, err := cfger.GetConfigValue(key)
			if err != nil {
				return err
			}
			if err := cfger.SetConfigValue(key, value); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printTarget(w, cfger)
			fmt.Fprintf(w, "  %s %s  %s %s %s\n\n",
				cliui.SuccessMark,
				keyStyle.Render(key),
				renderValue(key, previous),
				cliui.DimStyle.Render("->"),
				renderValue(key, value),
			)
			return nil
		},
	}
}
