package ui

import "github.com/charmbracelet/lipgloss"

// ANSI palette colors so help output follows the terminal theme.
var (
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)
	UsageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	DescStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	FlagStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	// ReplyStyle frames answers printed by the ask command.
	ReplyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)
