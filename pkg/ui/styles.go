package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/graph-arbitrage/pkg/ui/components"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(components.Edge).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(components.Bright).
			Background(components.Accent).
			Padding(0, 2)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(components.Accent).Padding(0, 1)
	logoStyle   = lipgloss.NewStyle().Bold(true).Foreground(components.Accent)
	heldStyle   = lipgloss.NewStyle().Foreground(components.Good)
	okStyle     = lipgloss.NewStyle().Foreground(components.Good)
	warnStyle   = lipgloss.NewStyle().Foreground(components.Warn)
	pausedStyle = lipgloss.NewStyle().Bold(true).Foreground(components.Warn)
	errStyle    = lipgloss.NewStyle().Foreground(components.Bad)
	errHeader   = lipgloss.NewStyle().Bold(true).Foreground(components.Bad)
	mutedStyle  = lipgloss.NewStyle().Foreground(components.Dim)
)
