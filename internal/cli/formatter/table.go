package formatter

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const colGap = 2

// RenderTable renders an aligned table with a header separator line. Column
// widths are measured with lipgloss.Width so colored cells align with plain
// ones.
func RenderTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	widths := columnWidths(headers, rows)

	var b strings.Builder
	for i, h := range headers {
		writeCell(&b, StyleHeader.Render(h), lipgloss.Width(h), widths[i], i == len(headers)-1)
	}
	b.WriteString("\n")
	for i, w := range widths {
		writeCell(&b, StyleDim.Render(strings.Repeat("─", w)), w, w, i == len(widths)-1)
	}
	b.WriteString("\n")
	for _, row := range rows {
		for i := range headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			writeCell(&b, cell, lipgloss.Width(cell), widths[i], i == len(headers)-1)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func columnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(widths) && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func writeCell(b *strings.Builder, rendered string, visible, width int, last bool) {
	b.WriteString(rendered)
	if last {
		return
	}
	pad := width - visible
	if pad < 0 {
		pad = 0
	}
	b.WriteString(strings.Repeat(" ", pad+colGap))
}
