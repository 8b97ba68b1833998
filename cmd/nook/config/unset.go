package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/nook/pkg/cliui"
	"github.com/papercomputeco/nook/pkg/config"
)

const unsetLongDesc string = `Restore a configuration value to its default.

Examples:
  nook config unset embedding.api_key
  nook config unset sync.workers`

func newUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "unset <key>",
		Short:             "Restore a configuration value to its default",
		Long:              unsetLongDesc,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			cfger, err := openConfiger(cmd, key)
			if err != nil {
				return err
			}

			if err := cfger.UnsetConfigValue(key); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printTarget(w, cfger)
			fmt.Fprintf(w, "  %s %s  %s\n\n",
				cliui.SuccessMark,
				keyStyle.Render(key),
				renderValue(key, config.DefaultConfigValue(key)),
			)
			return nil
		},
	}
}
