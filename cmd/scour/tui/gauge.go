package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/scour/pkg/scour/report"
)

// minBarWidth keeps gauges readable on narrow terminals.
const minBarWidth = 10

// renderBar draws a horizontal bar filled to fraction.
func renderBar(fraction float64, width int) string {
	width = max(width, minBarWidth)
	fraction = min(max(fraction, 0), 1)

	filled := int(fraction*float64(width) + 0.5)
	bar := lipgloss.NewStyle().Foreground(usageColor(fraction)).Render(strings.Repeat("█", filled))
	return bar + emptyBarStyle.Render(strings.Repeat("░", width-filled))
}

// renderGauge renders one labelled usage line, e.g.
// "memory  ████░░░░  25.0%  4.0 GB / 16 GB".
func renderGauge(label string, fraction float64, detail string, width int) string {
	line := fmt.Sprintf("%s %s %7s", labelStyle.Render(label), renderBar(fraction, width), report.FormatPercent(fraction))
	if detail != "" {
		line += "  " + mutedTextStyle.Render(detail)
	}
	return line
}

// usageDetail renders "used / total" in IEC units.
func usageDetail(used, total uint64) string {
	return fmt.Sprintf("%s / %s", humanize.IBytes(used), humanize.IBytes(total))
}
