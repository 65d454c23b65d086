package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"intentgate/internal/cli/formatter"
	"intentgate/internal/domain"
)

func newLedgerCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the audit ledger",
	}

	cmd.AddCommand(
		newLedgerShowCmd(app),
		newLedgerListCmd(app),
		newLedgerStatsCmd(app),
	)

	return cmd
}

func newLedgerShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <entry-id>",
		Short: "Show one ledger entry in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := app.Ledger.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatEntry(entry))
			return nil
		},
	}
}

func newLedgerListCmd(app *App) *cobra.Command {
	var userID, sessionID string
	var blocked, elevated bool
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger entries by filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var entries []*domain.LedgerEntry
			var err error
			switch {
			case blocked:
				entries, err = app.Ledger.ListBlocked(ctx, limit, offset)
			case elevated:
				entries, err = app.Ledger.ListWithElevation(ctx, limit, offset)
			case sessionID != "":
				entries, err = app.Ledger.ListBySession(ctx, sessionID)
			case userID != "":
				entries, err = app.Ledger.ListByUser(ctx, userID, limit, offset)
			default:
				return fmt.Errorf("one of --user, --session, --blocked or --elevated is required")
			}
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No entries found.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatEntryList(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Filter by user ID")
	cmd.Flags().StringVar(&sessionID, "session", "", "Filter by session ID")
	cmd.Flags().BoolVar(&blocked, "blocked", false, "Only entries blocked by screening")
	cmd.Flags().BoolVar(&elevated, "elevated", false, "Only entries with an elevation event")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "Pagination offset")
	return cmd
}

func newLedgerStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate ledger counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := app.Ledger.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatStats(stats))
			return nil
		},
	}
}
