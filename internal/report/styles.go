package report

import (
	"github.com/charmbracelet/lipgloss"
)

// Status styles
var (
	styleRunning = lipgloss.NewStyle().
			Foreground(lipgloss.Color("yellow")).
			Bold(true)

	styleDone = lipgloss.NewStyle().
			Foreground(lipgloss.Color("green")).
			Bold(true)

	styleFailed = lipgloss.NewStyle().
			Foreground(lipgloss.Color("red")).
			Bold(true)

	styleWarn = lipgloss.NewStyle().
			Foreground(lipgloss.Color("yellow"))

	stylePending = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// UI element styles
var (
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	styleDetail = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)
