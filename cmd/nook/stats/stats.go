// Package statscmder provides the `nook stats` command.
package statscmder

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/cmd/nook/engine"
	"github.com/papercomputeco/nook/pkg/cliui"
	"github.com/papercomputeco/nook/pkg/config"
	"github.com/papercomputeco/nook/pkg/logger"
	"github.com/papercomputeco/nook/pkg/utils"
)

type statsCommander struct {
	storageRoot string
	patterns    int

	debug  bool
	logger *zap.Logger
}

var statsFlags = []string{
	config.FlagStorageRoot,
}

// patternWidth fits a query pattern into the key column.
const patternWidth = 19

const statsShortDesc string = "Show vector store and cache statistics"

func NewStatsCmd() *cobra.Command {
	cmder := &statsCommander{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			cfg, err := engine.LoadConfig(cmd, statsFlags)
			if err != nil {
				return err
			}

			return cmder.run(cmd, cfg)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagStorageRoot, &cmder.storageRoot)
	cmd.Flags().IntVar(&cmder.patterns, "patterns", 5, "Number of most frequent query patterns to show")

	return cmd
}

func (c *statsCommander) run(cmd *cobra.Command, cfg *config.Config) error {
	c.logger = logger.NewLoggerWithFormat(c.debug, cfg.Log.Format)
	defer func() { _ = c.logger.Sync() }()

	// Statistics never need the embedding provider.
	cfg.Retrieval.KeywordOnly = true
	cfg.Embedding.APIKey = ""

	eng, err := engine.Open(cfg, c.logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	stats := eng.Store.Stats(cmd.Context())

	fmt.Printf("\n  %s %s\n\n", cliui.KeyStyle.Render("Storage root:"), cliui.DimStyle.Render(cfg.Storage.Root))

	cliui.KeyValues(os.Stdout, map[string]string{
		"namespaces":    strconv.Itoa(stats.Namespaces),
		"total vectors": strconv.Itoa(stats.TotalVectors),
	})

	if len(stats.PerNamespace) > 0 {
		fmt.Printf("\n  %s\n", cliui.StepStyle.Render("Vectors per namespace"))
		rows := make(map[string]string, len(stats.PerNamespace))
		for ns, n := range stats.PerNamespace {
			rows[ns] = strconv.Itoa(n)
		}
		cliui.KeyValues(os.Stdout, rows)
	}

	if c.patterns > 0 {
		top, err := eng.Pattern.Top(cmd.Context(), c.patterns)
		if err != nil {
			c.logger.Warn("reading query patterns", zap.Error(err))
		} else if len(top) > 0 {
			fmt.Printf("\n  %s\n", cliui.StepStyle.Render("Frequent queries"))
			rows := make(map[string]string, len(top))
			for _, p := range top {
				rows[utils.Truncate(p.Pattern, patternWidth)] = strconv.Itoa(p.Frequency)
			}
			cliui.KeyValues(os.Stdout, rows)
		}
	}

	fmt.Println()
	return nil
}
