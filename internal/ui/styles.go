// internal/ui/styles.go

package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	Subtle    = DefaultTheme.Subtle
	Highlight = DefaultTheme.Highlight
	Special   = DefaultTheme.Special
	Error     = DefaultTheme.Error
	Border    = DefaultTheme.Border

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Highlight)

	DescriptionStyle = lipgloss.NewStyle().
				Foreground(Subtle)

	ActiveStyle = lipgloss.NewStyle().
			Foreground(Special).
			Bold(true)

	ExitedStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)
)
