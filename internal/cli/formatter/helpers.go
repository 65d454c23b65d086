package formatter

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// TruncID shortens a uuid to its first segment for table display.
func TruncID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Truncate cuts s to max runes with an ellipsis.
func Truncate(s string, max int) string {
	if max <= 3 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// HumanTimestamp renders a timestamp in local time, minute precision.
func HumanTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2)

	if title != "" {
		return boxStyle.Render(StyleHeader.Render(strings.ToUpper(title)) + "\n\n" + content)
	}
	return boxStyle.Render(content)
}
