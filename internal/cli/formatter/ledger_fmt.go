package formatter

import (
	"fmt"
	"strings"

	"intentgate/internal/domain"
)

// FormatEntry renders the full detail view of one ledger entry.
func FormatEntry(e *domain.LedgerEntry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n", StyleBold.Render(e.ID), StyleDim.Render(HumanTimestamp(e.Timestamp)))
	fmt.Fprintf(&b, "%s %s   %s %s\n", StyleDim.Render("user:"), e.UserID, StyleDim.Render("session:"), e.SessionID)
	fmt.Fprintf(&b, "%s %s\n", StyleDim.Render("input:"), Truncate(e.UserInput, 100))

	if e.MaliciousScore != nil {
		marker := StyleGreen.Render("clean")
		if e.MaliciousBlocked {
			marker = StyleRed.Render("BLOCKED")
		}
		fmt.Fprintf(&b, "%s %.2f %s\n", StyleDim.Render("screening:"), *e.MaliciousScore, marker)
	}

	if v := e.VotingResult; v != nil {
		fmt.Fprintf(&b, "%s %s  min %.2f  avg %.2f  parsers %d\n",
			StyleDim.Render("vote:"), AgreementIndicator(v.AgreementLevel),
			v.MinSimilarity, v.AvgSimilarity, len(v.ParserResults))
		fmt.Fprintf(&b, "%s %s / %s\n", StyleDim.Render("canonical:"),
			v.CanonicalIntent.Action, Truncate(v.CanonicalIntent.Topic, 60))
	}

	if c := e.ComparisonResult; c != nil {
		fmt.Fprintf(&b, "%s %s  %s\n", StyleDim.Render("policy:"), DecisionIndicator(c.Decision), c.Explanation)
		for _, m := range c.Mismatches {
			fmt.Fprintf(&b, "  %s %s\n", StyleRed.Render("✗"), m)
		}
	}

	if ev := e.ElevationEvent; ev != nil {
		fmt.Fprintf(&b, "%s %s  %s\n", StyleDim.Render("review:"), ElevationIndicator(ev.Status), Truncate(ev.Reason, 70))
	}

	if ti := e.TrustedIntent; ti != nil {
		fmt.Fprintf(&b, "%s %s topic=%s refs=%d sig=%s\n", StyleDim.Render("trusted:"),
			ti.Action, ti.TopicID, len(ti.ContentRefs), ti.SigScheme)
	}

	if out := e.ProcessingOutput; out != nil {
		if out.Success {
			fmt.Fprintf(&b, "%s %s in %dms\n", StyleDim.Render("execution:"), StyleGreen.Render("ok"), out.ExecutionTimeMs)
		} else {
			msg := ""
			if out.Error != nil {
				msg = *out.Error
			}
			fmt.Fprintf(&b, "%s %s %s\n", StyleDim.Render("execution:"), StyleRed.Render("failed"), Truncate(msg, 80))
		}
	}

	return b.String()
}

// FormatEntryList renders ledger entries as a table.
func FormatEntryList(entries []*domain.LedgerEntry) string {
	headers := []string{"ID", "TIMESTAMP", "USER", "OUTCOME", "INPUT"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			TruncID(e.ID),
			HumanTimestamp(e.Timestamp),
			e.UserID,
			StatusIndicator(entryOutcome(e)),
			Truncate(e.UserInput, 48),
		})
	}
	return RenderTable(headers, rows)
}

// entryOutcome reconstructs the terminal status from what the entry holds;
// the ledger stores evidence, not a status column.
func entryOutcome(e *domain.LedgerEntry) domain.RequestStatus {
	switch {
	case e.MaliciousBlocked:
		return domain.StatusBlocked
	case e.WasExecuted():
		return domain.StatusCompleted
	case e.ElevationEvent != nil && e.ElevationEvent.Status == domain.ElevationPending:
		return domain.StatusPendingApproval
	case e.ComparisonResult != nil && e.ComparisonResult.IsHardMismatch():
		return domain.StatusRejected
	default:
		return domain.StatusFailed
	}
}

// FormatStats renders the aggregate ledger counters.
func FormatStats(s *domain.LedgerStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d\n", StyleDim.Render("entries:"), s.TotalEntries)
	fmt.Fprintf(&b, "%s %d   %s %d\n", StyleDim.Render("users:"), s.TotalUsers, StyleDim.Render("sessions:"), s.TotalSessions)
	fmt.Fprintf(&b, "%s %s   %s %d\n", StyleDim.Render("blocked:"), StyleRed.Render(fmt.Sprintf("%d", s.BlockedEntries)),
		StyleDim.Render("escalated:"), s.ElevationEvents)
	if s.OldestEntry != nil && s.NewestEntry != nil {
		fmt.Fprintf(&b, "%s %s .. %s\n", StyleDim.Render("range:"),
			HumanTimestamp(*s.OldestEntry), HumanTimestamp(*s.NewestEntry))
	}
	return RenderBox("ledger stats", strings.TrimRight(b.String(), "\n"))
}

// FormatElevationList renders the pending review queue as a table.
func FormatElevationList(events []*domain.ElevationEvent) string {
	headers := []string{"ID", "CREATED", "USER", "STATUS", "REASON"}
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{
			TruncID(ev.ID),
			HumanTimestamp(ev.CreatedAt),
			ev.UserID,
			ElevationIndicator(ev.Status),
			Truncate(ev.Reason, 56),
		})
	}
	return RenderTable(headers, rows)
}
