// internal/ui/themes.go

package ui

import "github.com/charmbracelet/lipgloss"

type Theme struct {
	Subtle    lipgloss.Color
	Highlight lipgloss.Color
	Special   lipgloss.Color
	Error     lipgloss.Color
	Border    lipgloss.Color
}

var DefaultTheme = Theme{
	Subtle:    lipgloss.Color("#6C7086"),
	Highlight: lipgloss.Color("#7DC4E4"),
	Special:   lipgloss.Color("#A6DA95"),
	Error:     lipgloss.Color("#ED8796"),
	Border:    lipgloss.Color("#33B2FF"),
}
