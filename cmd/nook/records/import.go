package recordscmder

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/cmd/nook/engine"
	"github.com/papercomputeco/nook/pkg/cliui"
	"github.com/papercomputeco/nook/pkg/eventstream"
	"github.com/papercomputeco/nook/pkg/records"
)

const importLongDesc string = `Save a business record from a JSON file.

The file holds one business object or an array of them. Each saved record
emits an upsert change event.

Examples:
  nook records import ./business.json`

func newImportCmd() *cobra.Command {
	t := &flagTargets{}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Save business records from JSON",
		Long:  importLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			businesses, err := readBusinesses(args[0])
			if err != nil {
				return err
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			publisher, err := engine.NewPublisher(s.cfg, s.logger)
			if err != nil {
				return fmt.Errorf("creating event publisher: %w", err)
			}
			defer publisher.Close()

			for _, b := range businesses {
				if b.UpdatedAt.IsZero() {
					b.UpdatedAt = time.Now().UTC()
				}

				if err := cliui.Step(os.Stdout, "Saving "+b.ID, func() error {
					return s.store.Save(s.context, b)
				}); err != nil {
					return err
				}

				event := eventstream.NewRecordChangedEvent(b.ID, RecordType, b.ID, eventstream.OpUpsert)
				if err := publisher.PublishRecordChanged(s.context, event); err != nil {
					s.logger.Warn("publishing record change", zap.String("namespace", b.ID), zap.Error(err))
				}
			}

			fmt.Printf("\n  %s %d record(s) imported\n\n", cliui.SuccessMark, len(businesses))
			return nil
		},
	}

	addFlags(cmd, t)
	return cmd
}

// readBusinesses decodes one business or an array of businesses.
func readBusinesses(path string) ([]records.Business, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var many []records.Business
	if err := json.Unmarshal(data, &many); err == nil {
		return many, nil
	}

	var one records.Business
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return []records.Business{one}, nil
}
