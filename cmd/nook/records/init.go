package recordscmder

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/nook/pkg/cliui"
)

func newInitCmd() *cobra.Command {
	t := &flagTargets{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the system of record schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			// Opening migrates; run it again so the step is visible.
			if err := cliui.Step(os.Stdout, "Creating schema", func() error {
				return s.store.Migrate(s.context)
			}); err != nil {
				return err
			}

			fmt.Printf("\n  %s %s system of record ready\n\n", cliui.SuccessMark, s.cfg.Records.Driver)
			return nil
		},
	}

	addFlags(cmd, t)
	return cmd
}
