package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/nook/pkg/cliui"
	"github.com/papercomputeco/nook/pkg/config"
)

const listLongDesc string = `List all configuration values.

Prints every key grouped by TOML section. Values that differ from the
built-in default show the default alongside; the embedding API key is
masked. Pass --changed to show only keys that differ from the default.

Examples:
  nook config list
  nook config list --changed`

func newListCmd() *cobra.Command {
	var changed bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfger, err := openConfiger(cmd, "")
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printTarget(w, cfger)

			section := ""
			for _, key := range config.ValidConfigKeys() {
				value, err := cfger.GetConfigValue(key)
				if err != nil {
					return err
				}
				if changed && value == config.DefaultConfigValue(key) {
					continue
				}

				if s := config.KeySection(key); s != section {
					if section != "" {
						fmt.Fprintln(w)
					}
					section = s
					fmt.Fprintf(w, "  %s\n", cliui.StepStyle.Render("["+section+"]"))
				}
				fmt.Fprintf(w, "  %s  %s\n", keyStyle.Render(key), renderValue(key, value))
			}

			if section == "" {
				fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("All values are defaults."))
			}
			fmt.Fprintln(w)
			return nil
		},
	}

	cmd.Flags().BoolVar(&changed, "changed", false, "Only list values that differ from the default")

	return cmd
}
