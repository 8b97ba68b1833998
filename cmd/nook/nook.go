// Package nookcmder
package nookcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/nook/cmd/nook/config"
	recordscmder "github.com/papercomputeco/nook/cmd/nook/records"
	retrievecmder "github.com/papercomputeco/nook/cmd/nook/retrieve"
	servecmder "github.com/papercomputeco/nook/cmd/nook/serve"
	statscmder "github.com/papercomputeco/nook/cmd/nook/stats"
	synccmder "github.com/papercomputeco/nook/cmd/nook/sync"
	versioncmder "github.com/papercomputeco/nook/cmd/version"
)

const nookLongDesc string = `Nook is an embedded semantic retrieval engine for business knowledge.

It keeps one vector namespace per business, answers nearest-neighbour
queries over them and falls back to keyword retrieval when embeddings are
unavailable.

Run services using:
  nook serve                  Run the engine API, MCP tool and sync queue
  nook retrieve <ns> <query>  Query a namespace from the terminal
  nook sync <ns>              Re-index a namespace from the system of record
  nook stats                  Show vector store statistics`

const nookShortDesc string = "Nook - business knowledge retrieval"

func NewNookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "nook",
		Short:         nookShortDesc,
		Long:          nookLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .nook configuration directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(retrievecmder.NewRetrieveCmd())
	cmd.AddCommand(synccmder.NewSyncCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(recordscmder.NewRecordsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
