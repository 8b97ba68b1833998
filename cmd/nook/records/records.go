// Package recordscmder provides the `nook records` commands managing the
// system of record namespaces are derived from.
package recordscmder

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/cmd/nook/engine"
	"github.com/papercomputeco/nook/pkg/config"
	"github.com/papercomputeco/nook/pkg/logger"
	"github.com/papercomputeco/nook/pkg/records/sqldb"
)

// RecordType is the record type carried by change events emitted here.
const RecordType = "business"

var recordsFlags = []string{
	config.FlagStorageRoot,
	config.FlagRecordsDriver,
	config.FlagRecordsDSN,
	config.FlagKafkaBrokers,
}

const recordsLongDesc string = `Manage the system of record.

Every namespace is derived from one business record. Writing or deleting a
record emits a record change event; with Kafka brokers configured a running
"nook serve" picks the event up and re-indexes the namespace.

Use subcommands:
  nook records init             Create the schema
  nook records import <file>    Save a business record from JSON
  nook records list             List business ids
  nook records delete <id>      Delete a business record`

const recordsShortDesc string = "Manage the system of record"

func NewRecordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: recordsShortDesc,
		Long:  recordsLongDesc,
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newDeleteCmd())

	return cmd
}

// flagTargets holds the registry flags shared by every records subcommand.
type flagTargets struct {
	storageRoot   string
	recordsDriver string
	recordsDSN    string
	kafkaBrokers  string
}

func addFlags(cmd *cobra.Command, t *flagTargets) {
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageRoot, &t.storageRoot)
	config.AddStringFlag(cmd, config.Flags, config.FlagRecordsDriver, &t.recordsDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagRecordsDSN, &t.recordsDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &t.kafkaBrokers)
}

// session is an opened system of record plus the resolved config.
type session struct {
	cfg     *config.Config
	store   *sqldb.Store
	logger  *zap.Logger
	context context.Context
}

func openSession(cmd *cobra.Command) (*session, error) {
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return nil, fmt.Errorf("could not get debug flag: %v", err)
	}

	cfg, err := engine.LoadConfig(cmd, recordsFlags)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log := logger.NewLoggerWithFormat(debug, cfg.Log.Format)

	store, err := engine.OpenRecords(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("opening system of record: %w", err)
	}
	if store == nil {
		return nil, errors.New("no system of record configured: set records.driver")
	}

	return &session{cfg: cfg, store: store, logger: log, context: ctx}, nil
}

func (s *session) Close() {
	_ = s.store.Close()
	_ = s.logger.Sync()
}
