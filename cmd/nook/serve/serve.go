// Package servecmder provides the serve command running the engine API, the
// MCP tool and the sync queue.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/api"
	"github.com/papercomputeco/nook/api/mcp"
	"github.com/papercomputeco/nook/cmd/nook/engine"
	"github.com/papercomputeco/nook/pkg/config"
	"github.com/papercomputeco/nook/pkg/logger"
	"github.com/papercomputeco/nook/pkg/reconcile"
)

type ServeCommander struct {
	listen         string
	storageRoot    string
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	embeddingDims  uint
	cacheBackend   string
	keywordOnly    bool
	recordsDriver  string
	recordsDSN     string
	kafkaBrokers   string
	syncWorkers    uint
	maxAttempts    uint
	logFormat      string

	debug  bool
	logger *zap.Logger
}

var serveFlags = []string{
	config.FlagListen,
	config.FlagStorageRoot,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagCacheBackend,
	config.FlagKeywordOnly,
	config.FlagRecordsDriver,
	config.FlagRecordsDSN,
	config.FlagKafkaBrokers,
	config.FlagSyncWorkers,
	config.FlagSyncMaxAttempts,
	config.FlagLogFormat,
}

const serveLongDesc string = `Run the nook engine.

Starts the engine HTTP API with the MCP retrieve_relevant tool mounted at
/mcp, watches the vector directory for changes made by other processes and,
when a system of record is configured, runs the sync queue. With Kafka
brokers configured, record change events are consumed into the queue.`

const serveShortDesc string = "Run the nook engine"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			cfg, err := engine.LoadConfig(cmd, serveFlags)
			if err != nil {
				return err
			}

			return cmder.run(cmd.Context(), cfg)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageRoot, &cmder.storageRoot)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, config.Flags, config.FlagCacheBackend, &cmder.cacheBackend)
	config.AddBoolFlag(cmd, config.Flags, config.FlagKeywordOnly, &cmder.keywordOnly)
	config.AddStringFlag(cmd, config.Flags, config.FlagRecordsDriver, &cmder.recordsDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagRecordsDSN, &cmder.recordsDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddUintFlag(cmd, config.Flags, config.FlagSyncWorkers, &cmder.syncWorkers)
	config.AddUintFlag(cmd, config.Flags, config.FlagSyncMaxAttempts, &cmder.maxAttempts)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogFormat, &cmder.logFormat)

	return cmd
}

func (c *ServeCommander) run(parent context.Context, cfg *config.Config) error {
	c.logger = logger.NewLoggerWithFormat(c.debug, cfg.Log.Format)
	defer func() { _ = c.logger.Sync() }()

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	eng, err := engine.Open(cfg, c.logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.Store.Watch(ctx); err != nil {
		c.logger.Warn("vector directory watch unavailable", zap.Error(err))
	}

	apiConfig := api.Config{
		ListenAddr: cfg.API.Listen,
		Retriever:  eng.Adapter,
		Store:      eng.Store,
	}

	// Sync queue, only with a system of record
	queue, closeRecords, err := c.startQueue(ctx, cfg, eng)
	if err != nil {
		return err
	}
	if queue != nil {
		defer closeRecords()
		defer queue.Close()
		apiConfig.Syncer = queue
	}

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	if queue != nil {
		subscriber, err := engine.NewSubscriber(cfg, c.logger)
		if err != nil {
			return fmt.Errorf("creating kafka subscriber: %w", err)
		}
		if subscriber != nil {
			defer subscriber.Close()
			c.logger.Info("consuming record change events",
				zap.Strings("brokers", cfg.KafkaBrokers()),
				zap.String("topic", cfg.Events.KafkaTopic),
			)
			go func() {
				if err := subscriber.Run(ctx, queue.Inbox()); err != nil && !errors.Is(err, context.Canceled) {
					errChan <- fmt.Errorf("kafka subscriber error: %w", err)
				}
			}()
		}
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Retriever: eng.Adapter,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}
	apiConfig.MCPHandler = mcpServer.Handler()

	server, err := api.NewServer(apiConfig, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.logger.Info("starting nook engine",
		zap.String("listen", cfg.API.Listen),
		zap.String("storage_root", cfg.Storage.Root),
		zap.String("retrieval", engine.Describe(cfg)),
		zap.Bool("sync", queue != nil),
	)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		if err := server.Shutdown(); err != nil {
			c.logger.Warn("API server shutdown", zap.Error(err))
		}
		return nil
	}
}

// startQueue opens the system of record and starts the sync queue. It
// returns a nil queue when the records driver is "none".
func (c *ServeCommander) startQueue(ctx context.Context, cfg *config.Config, eng *engine.Engine) (*reconcile.Queue, func(), error) {
	records, err := engine.OpenRecords(ctx, cfg, c.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening system of record: %w", err)
	}
	if records == nil {
		c.logger.Info("no system of record configured, sync disabled")
		return nil, nil, nil
	}

	queue, err := reconcile.NewQueue(&reconcile.Config{
		Source:           records,
		Indexer:          eng.Adapter,
		Store:            eng.Store,
		NumWorkers:       cfg.Sync.Workers,
		MaxRetryAttempts: int(cfg.Sync.MaxRetryAttempts),
		BackoffUnit:      cfg.BackoffUnit(),
		SweepInterval:    cfg.SweepInterval(),
		Logger:           c.logger,
	})
	if err != nil {
		_ = records.Close()
		return nil, nil, fmt.Errorf("creating sync queue: %w", err)
	}
	queue.Start(ctx)

	return queue, func() { _ = records.Close() }, nil
}
