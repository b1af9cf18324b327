package tui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	canvasStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Italic(true)
)
