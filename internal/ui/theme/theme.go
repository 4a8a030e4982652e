// Package theme holds the colours and styles of findata's terminal output.
package theme

import "charm.land/lipgloss/v2"

// Ledger palette: ink on dark paper, green for gains and red for losses.
var (
	Primary   = lipgloss.Color("#38BDF8")
	Secondary = lipgloss.Color("#10B981")
	Gain      = lipgloss.Color("#4ADE80")
	Loss      = lipgloss.Color("#F87171")
	Caution   = lipgloss.Color("#FBBF24")
	Ink       = lipgloss.Color("#E2E8F0")
	TextDim   = lipgloss.Color("#64748B")
	Rule      = lipgloss.Color("#1E293B")
)

var (
	Title  = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	Body   = lipgloss.NewStyle().Foreground(Ink)
	Hint   = lipgloss.NewStyle().Foreground(TextDim)
	Done   = lipgloss.NewStyle().Bold(true).Foreground(Gain)
	Failed = lipgloss.NewStyle().Bold(true).Foreground(Loss)
	Warn   = lipgloss.NewStyle().Foreground(Caution)

	// Count bar cells.
	ProgressFilled = lipgloss.NewStyle().Background(Secondary)
	ProgressEmpty  = lipgloss.NewStyle().Background(Rule)
)
