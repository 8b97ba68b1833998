// Package retrievecmder provides the `nook retrieve` command.
package retrievecmder

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/cmd/nook/engine"
	"github.com/papercomputeco/nook/pkg/cliui"
	"github.com/papercomputeco/nook/pkg/config"
	"github.com/papercomputeco/nook/pkg/logger"
	"github.com/papercomputeco/nook/pkg/retrieval"
)

type retrieveCommander struct {
	storageRoot string
	keywordOnly bool
	limit       int
	raw         bool

	debug  bool
	logger *zap.Logger
}

var retrieveFlags = []string{
	config.FlagStorageRoot,
	config.FlagKeywordOnly,
}

const retrieveLongDesc string = `Retrieve the documents of a namespace most relevant to a question.

The query is embedded through the cache, the offline pattern index and the
embedding provider. When no embedding is available the call is answered by
keyword overlap instead.

Examples:
  nook retrieve biz-42 "are you open on sunday"
  nook retrieve biz-42 "how much is a haircut" --limit 3`

const retrieveShortDesc string = "Retrieve relevant documents for a question"

func NewRetrieveCmd() *cobra.Command {
	cmder := &retrieveCommander{}

	cmd := &cobra.Command{
		Use:   "retrieve <namespace> <query...>",
		Short: retrieveShortDesc,
		Long:  retrieveLongDesc,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			cfg, err := engine.LoadConfig(cmd, retrieveFlags)
			if err != nil {
				return err
			}

			return cmder.run(cmd, cfg, args[0], strings.Join(args[1:], " "))
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagStorageRoot, &cmder.storageRoot)
	config.AddBoolFlag(cmd, config.Flags, config.FlagKeywordOnly, &cmder.keywordOnly)
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", retrieval.DefaultLimit, "Number of documents to return")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print plain markdown without terminal styling")

	return cmd
}

func (c *retrieveCommander) run(cmd *cobra.Command, cfg *config.Config, namespaceID, query string) error {
	c.logger = logger.NewLoggerWithFormat(c.debug, cfg.Log.Format)
	defer func() { _ = c.logger.Sync() }()

	eng, err := engine.Open(cfg, c.logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	docs, mode := eng.Adapter.RetrieveWithMode(cmd.Context(), namespaceID, query, c.limit)

	out := cliui.DocumentsMarkdown(query, string(mode), docs)
	if !c.raw {
		rendered, err := cliui.RenderMarkdown(out)
		if err == nil {
			out = rendered
		}
	}

	fmt.Fprint(os.Stdout, out)
	return nil
}
