// Package stratacmder
package stratacmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/strata/cmd/strata/config"
	entitycmder "github.com/papercomputeco/strata/cmd/strata/entity"
	ingestcmder "github.com/papercomputeco/strata/cmd/strata/ingest"
	searchcmder "github.com/papercomputeco/strata/cmd/strata/search"
	servecmder "github.com/papercomputeco/strata/cmd/strata/serve"
	statscmder "github.com/papercomputeco/strata/cmd/strata/stats"
	"github.com/papercomputeco/strata/pkg/utils"
)

const strataLongDesc string = `Strata is hierarchical memory for your agents.

Conversations are recorded as raw entries, compacted into layered summaries
as they age, and archived so evicted detail can be reconstructed on demand.

Run the server using:
  strata serve         Run the memory API and MCP servers

Query a running server using:
  strata ingest        Ingest a message into an entity's memory
  strata stats         Show an entity's memory statistics
  strata search        Search an entity's archived memory`

const strataShortDesc string = "Strata - Agent Memory"

func NewStrataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "strata",
		Short:   strataShortDesc,
		Long:    strataLongDesc,
		Version: utils.Version,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .strata/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(entitycmder.NewEntityCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())

	return cmd
}
