// Package cli implements the intentgate command tree. Commands stay thin:
// they parse flags, call services and hand results to the formatter.
package cli

import (
	"github.com/spf13/cobra"

	"intentgate/internal/config"
	"intentgate/internal/repository"
	"intentgate/internal/service"
)

// App holds references to the services and repositories used by CLI
// commands.
type App struct {
	Pipeline   service.PipelineService
	Elevations service.ElevationService
	Ledger     repository.LedgerRepo
	Config     *config.Config

	// IsInteractive reports whether stdin is a terminal; confirmation
	// prompts are skipped when it is not.
	IsInteractive func() bool
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

// NewRootCmd creates the top-level "intentgate" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "intentgate",
		Short: "Prompt-injection defense pipeline and audit ledger",
	}

	root.AddCommand(
		newServeCmd(app),
		newProcessCmd(app),
		newLedgerCmd(app),
		newElevationsCmd(app),
	)

	return root
}
