package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Teal     = lipgloss.Color("#0d7377")
	OffWhite = lipgloss.Color("#f8f7f4")
	Amber    = lipgloss.Color("#d9a441")
	Red      = lipgloss.Color("#c0392b")

	StatusBarStyle = lipgloss.NewStyle().
			Background(Teal).
			Foreground(OffWhite).
			Bold(true).
			Padding(0, 1)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Teal).
			Padding(1)

	TitleStyle = lipgloss.NewStyle().
			Foreground(Teal).
			Bold(true)

	WarnStyle = lipgloss.NewStyle().
			Foreground(Amber)

	ErrStyle = lipgloss.NewStyle().
			Foreground(Red)
)
