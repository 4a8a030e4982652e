package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/findata/internal/ui/theme"
)

// CountBar is a horizontal bar for done/total counts, e.g. chunks sent.
type CountBar struct {
	Label string
	Done  int
	Total int
	Width int
}

// NewCountBar creates a count bar.
func NewCountBar(label string, done, total, width int) CountBar {
	return CountBar{Label: label, Done: done, Total: total, Width: width}
}

// Fraction returns Done/Total clamped to [0, 1]. An empty total is 0.
func (b CountBar) Fraction() float64 {
	if b.Total <= 0 {
		return 0
	}
	return min(max(float64(b.Done)/float64(b.Total), 0), 1)
}

// View renders the bar followed by "done/total".
func (b CountBar) View() string {
	var result string
	if b.Label != "" {
		result += theme.Body.Render(b.Label) + "  "
	}

	count := fmt.Sprintf("  %d/%d", b.Done, b.Total)
	barWidth := max(b.Width-lipgloss.Width(result)-len(count), 4)

	filled := int(float64(barWidth) * b.Fraction())
	result += theme.ProgressFilled.Render(strings.Repeat(" ", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat(" ", barWidth-filled))

	return result + lipgloss.NewStyle().Foreground(theme.TextDim).Render(count)
}
