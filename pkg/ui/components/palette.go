package components

import "github.com/charmbracelet/lipgloss"

// Palette shared by the dashboard and its components.
var (
	Accent = lipgloss.Color("#7C3AED")
	Good   = lipgloss.Color("#10B981")
	Bad    = lipgloss.Color("#EF4444")
	Warn   = lipgloss.Color("#F59E0B")
	Dim    = lipgloss.Color("#6B7280")
	Edge   = lipgloss.Color("#374151")
	Bright = lipgloss.Color("#FFFFFF")
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(Accent)
	goodStyle   = lipgloss.NewStyle().Foreground(Good).Bold(true)
	badStyle    = lipgloss.NewStyle().Foreground(Bad).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(Dim)
	brightStyle = lipgloss.NewStyle().Foreground(Bright).Bold(true)
)
