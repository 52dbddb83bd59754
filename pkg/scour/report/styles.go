package report

import "github.com/charmbracelet/lipgloss"

// Color constants using the ANSI 256-color palette.
const (
	ColorPrimary = lipgloss.Color("39")
	ColorSuccess = lipgloss.Color("42")
	ColorWarning = lipgloss.Color("214")
	ColorDanger  = lipgloss.Color("196")
	ColorMuted   = lipgloss.Color("245")
)

var (
	// HeaderBox frames the outcome and totals.
	HeaderBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1)

	// FooterBox frames the resource comparison.
	FooterBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1).
			MarginTop(1)
)

var (
	TitleStyle       = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	LabelStyle       = lipgloss.NewStyle().Foreground(ColorMuted)
	ValueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	SuccessStyle     = lipgloss.NewStyle().Foreground(ColorSuccess)
	WarningStyle     = lipgloss.NewStyle().Foreground(ColorWarning)
	ErrorStyle       = lipgloss.NewStyle().Foreground(ColorDanger)
	MutedStyle       = lipgloss.NewStyle().Foreground(ColorMuted)
	SizeStyle        = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorMuted).PaddingRight(2)
)

// outcomeStyle picks the headline color for an outcome.
func outcomeStyle(o Outcome) lipgloss.Style {
	switch o {
	case OutcomeCleaned:
		return SuccessStyle.Bold(true)
	case OutcomeCleanedWithErrors, OutcomeCancelled:
		return WarningStyle.Bold(true)
	case OutcomeDryRun:
		return TitleStyle
	default:
		return MutedStyle.Bold(true)
	}
}
