package render

import (
	"image/color"

	"github.com/charmbracelet/lipgloss"
)

var (
	// frameStyle wraps human-mode frames in a rounded panel.
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Foreground(lipgloss.Color("#00ff88"))

	Foreground = color.RGBA{0x00, 0xff, 0x88, 0xff}
	Background = color.RGBA{0x0a, 0x0a, 0x0a, 0xff}
)
