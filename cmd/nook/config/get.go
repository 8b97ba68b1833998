package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"
)

const getLongDesc string = `Get a configuration value.

Prints the effective value of a key from .nook/config.toml, falling back
to the built-in default. The embedding API key is masked unless --raw
is given.

Examples:
  nook config get embedding.provider
  nook config get --raw sync.backoff_unit`

func newGetCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:               "get <key>",
		Short:             "Get a configuration value",
		Long:              getLongDesc,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			cfger, err := openConfiger(cmd, key)
			if err != nil {
				return err
			}

			value, err := cfger.GetConfigValue(key)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if raw {
				fmt.Fprintln(w, value)
				return nil
			}

			printTarget(w, cfger)
			fmt.Fprintf(w, "  %s  %s\n\n", keyStyle.Render(key), renderValue(key, value))
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print only the unmasked value")

	return cmd
}
