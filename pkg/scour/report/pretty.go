package report

import (
	"bytes"
	"fmt"
	"strings"
)

// PrettyFormatter renders the report with lipgloss colors and boxes for
// terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatTargets(r))

	if len(r.SkippedTargets) > 0 {
		w.WriteString("\n")
		w.WriteString(WarningStyle.Bold(true).Render("Skipped targets:"))
		w.WriteString("\n")
		for _, s := range r.SkippedTargets {
			w.WriteString(WarningStyle.Render(fmt.Sprintf("  %s: %s", s.Label, s.Reason)))
			w.WriteString("\n")
		}
	}

	if len(r.Errors) > 0 {
		w.WriteString("\n")
		w.WriteString(ErrorStyle.Bold(true).Render(fmt.Sprintf("Errors (%d):", len(r.Errors))))
		w.WriteString("\n")
		for _, e := range r.Errors {
			w.WriteString("  ")
			w.WriteString(MutedStyle.Render("[" + e.Kind + "]"))
			w.WriteString(" ")
			w.WriteString(ErrorStyle.Render(e.Path + ": " + e.Message))
			w.WriteString("\n")
		}
	}

	if len(r.Resources) > 0 {
		w.WriteString(f.formatResources(r.Resources))
		w.WriteString("\n")
	}
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Report) string {
	lines := []string{outcomeStyle(r.Outcome).Render(r.Headline)}

	parts := []string{
		LabelStyle.Render("Deleted:") + " " + SizeStyle.Render(r.DeletedSize),
		LabelStyle.Render("Files:") + " " + ValueStyle.Render(fmt.Sprintf("%d", r.DeletedFiles)),
		LabelStyle.Render("Skipped:") + " " + ValueStyle.Render(fmt.Sprintf("%d", r.SkippedFiles)),
	}
	if r.RemovedDirs > 0 {
		parts = append(parts, LabelStyle.Render("Dirs:")+" "+ValueStyle.Render(fmt.Sprintf("%d", r.RemovedDirs)))
	}
	if r.Elapsed != "" {
		parts = append(parts, LabelStyle.Render("Took:")+" "+MutedStyle.Render(r.Elapsed))
	}
	lines = append(lines, strings.Join(parts, "  "))

	if r.LimitReached {
		lines = append(lines, WarningStyle.Render("Max files reached"))
	}
	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatTargets(r *Report) string {
	if len(r.Targets) == 0 {
		return MutedStyle.Render("  No targets cleaned\n")
	}

	labelWidth := 6
	sizeWidth := 8
	for _, t := range r.Targets {
		labelWidth = max(labelWidth, len(t.Label))
		sizeWidth = max(sizeWidth, len(t.Size))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n",
		TableHeaderStyle.Render(padRight("TARGET", labelWidth)),
		TableHeaderStyle.Render(padLeft("SIZE", sizeWidth)),
		TableHeaderStyle.Render(padLeft("FILES", 7)),
		TableHeaderStyle.Render("ROOT")))

	for _, t := range r.Targets {
		label := ValueStyle.Render(padRight(t.Label, labelWidth))
		if t.Errors > 0 {
			label = WarningStyle.Render(padRight(t.Label, labelWidth))
		}
		sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n",
			label,
			SizeStyle.Render(padLeft(t.Size, sizeWidth)),
			ValueStyle.Render(padLeft(fmt.Sprintf("%d", t.Files), 7)),
			MutedStyle.Render(t.Root)))
	}
	return sb.String()
}

func (f *PrettyFormatter) formatResources(lines []ResourceLine) string {
	var rows []string
	rows = append(rows, TitleStyle.Render("Resources"))
	for _, l := range lines {
		rows = append(rows, fmt.Sprintf("%s %s %s %s",
			LabelStyle.Render(padRight(l.Name, 7)),
			ValueStyle.Render(l.Before),
			MutedStyle.Render("->"),
			ValueStyle.Render(l.After)))
	}
	return FooterBox.Render(strings.Join(rows, "\n"))
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
