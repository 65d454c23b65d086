package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"intentgate/internal/cli/formatter"
	"intentgate/internal/service"
)

func newProcessCmd(app *App) *cobra.Command {
	var userID, sessionID string
	var contentRefs []string

	cmd := &cobra.Command{
		Use:   "process <query>",
		Short: "Run one query through the trust pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionID == "" {
				sessionID = uuid.New().String()
			}

			result, err := app.Pipeline.Process(cmd.Context(), service.ProcessRequest{
				UserID:      userID,
				SessionID:   sessionID,
				Query:       strings.Join(args, " "),
				ContentRefs: contentRefs,
			})
			if result == nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  entry %s\n", formatter.StatusIndicator(result.Status), formatter.TruncID(result.LedgerEntryID))
			if v := result.VotingResult; v != nil {
				fmt.Fprintf(out, "vote: %s (min %.2f avg %.2f)\n",
					formatter.AgreementIndicator(v.AgreementLevel), v.MinSimilarity, v.AvgSimilarity)
			}
			if c := result.Comparison; c != nil {
				fmt.Fprintf(out, "policy: %s  %s\n", formatter.DecisionIndicator(c.Decision), c.Explanation)
			}
			if ev := result.Elevation; ev != nil {
				fmt.Fprintf(out, "escalated for review: %s\n", ev.ID)
			}
			if ti := result.TrustedIntent; ti != nil {
				fmt.Fprintf(out, "trusted intent: %s topic=%s hash=%s\n", ti.Action, ti.TopicID, formatter.TruncID(ti.ContentHash))
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

	cmd.Flags().StringVar(&userID, "user", "cli", "User ID to attribute the request to")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID (generated when omitted)")
	cmd.Flags().StringSliceVar(&contentRefs, "ref", nil, "Content reference identifier (repeatable)")
	return cmd
}
