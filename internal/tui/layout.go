package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

func modalBodyWidth(termWidth int) int {
	w := termWidth - 10
	if w > 72 {
		w = 72
	}
	if w < 20 {
		w = 20
	}
	return w
}

func renderModalBox(termWidth int, title, content string) string {
	bodyW := modalBodyWidth(termWidth)
	head := lipgloss.NewStyle().Bold(true).Foreground(colorSurfaceFg).Render(title)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(0, 1).
		Width(bodyW + 2).
		Render(head + "\n\n" + content)
}

// overlay centers box in place of the body.
func overlay(body, box string, width, height int) string {
	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(width, max(lipgloss.Height(body), lipgloss.Height(box)), lipgloss.Center, lipgloss.Center, box)
}

// truncate cuts s to width display cells, keeping ANSI sequences intact.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if xansi.StringWidth(s) <= width {
		return s
	}
	return xansi.Truncate(s, width, "…")
}

// fitLines pads or cuts every line of s to exactly width cells and the block
// to height lines, so panes joined side by side stay aligned.
func fitLines(s string, width, height int) string {
	lines := strings.Split(s, "\n")
	if height > 0 && len(lines) > height {
		lines = lines[:height]
	}
	for i, ln := range lines {
		ln = truncate(ln, width)
		if pad := width - xansi.StringWidth(ln); pad > 0 {
			ln += strings.Repeat(" ", pad)
		}
		lines[i] = ln
	}
	for height > 0 && len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}
