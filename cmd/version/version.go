// Package versioncmder prints nook build metadata.
package versioncmder

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/nook/pkg/cliui"
	"github.com/papercomputeco/nook/pkg/utils"
)

// NewVersionCmd returns the version command.
func NewVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print nook build information",
		Long:  "Prints the version, commit, build time and Go runtime of this nook binary.\nWith --short only the version is printed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(w, utils.Version)
				return nil
			}

			rows := [][2]string{
				{"Version", utils.Version},
				{"Commit", utils.ShortSha()},
				{"Built", utils.Buildtime},
				{"Go", runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH},
			}
			fmt.Fprintln(w)
			for _, row := range rows {
				fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render(row[0]), cliui.ValueStyle.Render(row[1]))
			}
			fmt.Fprintln(w)
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print only the version")

	return cmd
}
