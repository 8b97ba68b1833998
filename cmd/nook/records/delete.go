package recordscmder

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/cmd/nook/engine"
	"github.com/papercomputeco/nook/pkg/cliui"
	"github.com/papercomputeco/nook/pkg/eventstream"
)

func newDeleteCmd() *cobra.Command {
	t := &flagTargets{}

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a business record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			id := args[0]
			if err := s.store.Delete(s.context, id); err != nil {
				return fmt.Errorf("deleting %s: %w", id, err)
			}

			publisher, err := engine.NewPublisher(s.cfg, s.logger)
			if err != nil {
				return fmt.Errorf("creating event publisher: %w", err)
			}
			defer publisher.Close()

			event := eventstream.NewRecordChangedEvent(id, RecordType, id, eventstream.OpDelete)
			if err := publisher.PublishRecordChanged(s.context, event); err != nil {
				s.logger.Warn("publishing record change", zap.String("namespace", id), zap.Error(err))
			}

			fmt.Printf("\n  %s Deleted %s\n\n", cliui.SuccessMark, cliui.ValueStyle.Render(id))
			return nil
		},
	}

	addFlags(cmd, t)
	return cmd
}
