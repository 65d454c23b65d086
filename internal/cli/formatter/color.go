package formatter

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"intentgate/internal/domain"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// StatusColor returns the style for a request status.
func StatusColor(status domain.RequestStatus) lipgloss.Style {
	switch status {
	case domain.StatusCompleted:
		return StyleGreen
	case domain.StatusPendingApproval:
		return StyleYellow
	case domain.StatusBlocked, domain.StatusRejected, domain.StatusFailed:
		return StyleRed
	default:
		return StyleDim
	}
}

// StatusIndicator returns a colored status marker such as "● COMPLETED".
func StatusIndicator(status domain.RequestStatus) string {
	return StatusColor(status).Render("● " + strings.ToUpper(string(status)))
}

// DecisionIndicator colors a comparator decision.
func DecisionIndicator(d domain.Decision) string {
	switch d {
	case domain.DecisionApproved:
		return StyleGreen.Render("APPROVED")
	case domain.DecisionSoftMismatch:
		return StyleYellow.Render("SOFT MISMATCH")
	case domain.DecisionHardMismatch:
		return StyleRed.Render("HARD MISMATCH")
	default:
		return StyleDim.Render(strings.ToUpper(string(d)))
	}
}

// AgreementIndicator colors a voting agreement level.
func AgreementIndicator(level domain.AgreementLevel) string {
	switch level {
	case domain.AgreementHighConfidence:
		return StyleGreen.Render("HIGH CONFIDENCE")
	case domain.AgreementLowConfidence:
		return StyleYellow.Render("LOW CONFIDENCE")
	case domain.AgreementConflict:
		return StyleRed.Render("CONFLICT")
	default:
		return StyleDim.Render(strings.ToUpper(string(level)))
	}
}

// ElevationIndicator colors an elevation status.
func ElevationIndicator(status domain.ElevationStatus) string {
	switch status {
	case domain.ElevationPending:
		return StyleYellow.Render("PENDING")
	case domain.ElevationApproved:
		return StyleGreen.Render("APPROVED")
	case domain.ElevationRejected:
		return StyleRed.Render("REJECTED")
	default:
		return StyleDim.Render(strings.ToUpper(string(status)))
	}
}
