package cli

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"intentgate/internal/cli/formatter"
)

func newElevationsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "elevations",
		Short: "Manage the human-review queue",
	}

	cmd.AddCommand(
		newElevationsListCmd(app),
		newElevationsResolveCmd(app),
	)

	return cmd
}

func newElevationsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending elevation events",
		RunE: func(cmd *cobra.Command, args []string) error {
			pending, err := app.Elevations.ListPending(cmd.Context())
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending elevations.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatElevationList(pending))
			return nil
		},
	}
}

func newElevationsResolveCmd(app *App) *cobra.Command {
	var approve, reject bool
	var approverID, notes string

	cmd := &cobra.Command{
		Use:   "resolve <elevation-id>",
		Short: "Approve or reject a pending elevation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if approve == reject {
				return fmt.Errorf("exactly one of --approve or --reject is required")
			}

			verb := "Reject"
			if approve {
				verb = "Approve"
			}
			if app.interactive() {
				var confirmed bool
				form := huh.NewForm(huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf("%s elevation %s?", verb, formatter.TruncID(args[0]))).
						Affirmative("Yes").
						Negative("No").
						Value(&confirmed),
				)).WithShowHelp(false)
				if err := form.Run(); err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			var notesPtr *string
			if notes != "" {
				notesPtr = &notes
			}
			result, err := app.Elevations.Resolve(cmd.Context(), args[0], approverID, approve, notesPtr)
			if err != nil && result == nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", formatter.ElevationIndicator(result.Event.Status), result.Event.ID)
			if ti := result.TrustedIntent; ti != nil {
				fmt.Fprintf(out, "trusted intent: %s topic=%s  entry %s\n",
					ti.Action, ti.TopicID, formatter.TruncID(result.LedgerEntryID))
			}
			if o := result.Output; o != nil && o.Success {
				fmt.Fprintf(out, "executed in %dms\n", o.ExecutionTimeMs)
			}
			if err != nil {
				fmt.Fprintf(out, "%s %v\n", formatter.StyleRed.Render("error:"), err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&approve, "approve", false, "Approve the elevation")
	cmd.Flags().BoolVar(&reject, "reject", false, "Reject the elevation")
	cmd.Flags().StringVar(&approverID, "approver", "cli", "Approver ID recorded on the event")
	cmd.Flags().StringVar(&notes, "notes", "", "Reviewer notes")
	return cmd
}
