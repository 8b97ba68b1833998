// Package synccmder provides the `nook sync` command.
package synccmder

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/cmd/nook/engine"
	"github.com/papercomputeco/nook/pkg/cliui"
	"github.com/papercomputeco/nook/pkg/config"
	"github.com/papercomputeco/nook/pkg/logger"
)

type syncCommander struct {
	storageRoot   string
	recordsDriver string
	recordsDSN    string
	all           bool

	debug  bool
	logger *zap.Logger
}

var syncFlags = []string{
	config.FlagStorageRoot,
	config.FlagRecordsDriver,
	config.FlagRecordsDSN,
}

const syncLongDesc string = `Re-index namespaces from the system of record.

Each namespace is rebuilt from the current business record: documents are
re-derived, embedded and upserted, and vectors the record no longer produces
are removed. A business missing from the system of record empties its
namespace.

Examples:
  nook sync biz-42
  nook sync --all`

const syncShortDesc string = "Re-index namespaces from the system of record"

// NewSyncCmd creates the sync cobra command.
func NewSyncCmd() *cobra.Command {
	cmder := &syncCommander{}

	cmd := &cobra.Command{
		Use:   "sync [namespace...]",
		Short: syncShortDesc,
		Long:  syncLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !cmder.all {
				return errors.New("name at least one namespace or pass --all")
			}

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			cfg, err := engine.LoadConfig(cmd, syncFlags)
			if err != nil {
				return err
			}

			return cmder.run(cmd.Context(), cfg, args)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagStorageRoot, &cmder.storageRoot)
	config.AddStringFlag(cmd, config.Flags, config.FlagRecordsDriver, &cmder.recordsDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagRecordsDSN, &cmder.recordsDSN)
	cmd.Flags().BoolVar(&cmder.all, "all", false, "Sync every business in the system of record")

	return cmd
}

func (c *syncCommander) run(ctx context.Context, cfg *config.Config, namespaces []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger = logger.NewLoggerWithFormat(c.debug, cfg.Log.Format)
	defer func() { _ = c.logger.Sync() }()

	records, err := engine.OpenRecords(ctx, cfg, c.logger)
	if err != nil {
		return fmt.Errorf("opening system of record: %w", err)
	}
	if records == nil {
		return errors.New("sync requires a system of record: set records.driver")
	}
	defer records.Close()

	eng, err := engine.Open(cfg, c.logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	if c.all {
		namespaces, err = records.ListIDs(ctx)
		if err != nil {
			return fmt.Errorf("listing businesses: %w", err)
		}
	}

	var failed int
	for _, ns := range namespaces {
		err := cliui.Step(os.Stdout, "Syncing "+ns, func() error {
			docs, err := records.Documents(ctx, ns)
			if err != nil {
				return err
			}
			return eng.Adapter.IndexDocuments(ctx, ns, docs)
		})
		if err != nil {
			failed++
			c.logger.Debug("namespace sync failed", zap.String("namespace", ns), zap.Error(err))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d namespaces failed to sync", failed, len(namespaces))
	}

	fmt.Printf("\n  %s %d namespace(s) synced\n\n", cliui.SuccessMark, len(namespaces))
	return nil
}
