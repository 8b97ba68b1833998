package recordscmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/nook/pkg/cliui"
)

func newListCmd() *cobra.Command {
	t := &flagTargets{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List business ids in the system of record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ids, err := s.store.ListIDs(s.context)
			if err != nil {
				return fmt.Errorf("listing businesses: %w", err)
			}

			if len(ids) == 0 {
				fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("No business records."))
				return nil
			}

			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}

	addFlags(cmd, t)
	return cmd
}
