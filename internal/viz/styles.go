package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Dim           = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	MetricLabel   = lipgloss.NewStyle().Foreground(lipgloss.Color("249"))
	MetricValue   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	Footnote      = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("242"))
	StatusRunning = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("82"))
	StatusPaused  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))

	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("255")).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(lipgloss.Color("240"))

	CanvasFrame = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// Separator renders a horizontal rule.
func Separator(width int) string {
	return Dim.Render(strings.Repeat("─", width))
}
