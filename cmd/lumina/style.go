package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	dimColor     = lipgloss.Color("#6c6c6c")
	accentColor  = lipgloss.Color("#7aa2f7")
	successColor = lipgloss.Color("#9ece6a")
	warnColor    = lipgloss.Color("#e0af68")
	errorColor   = lipgloss.Color("#f7768e")
)

var (
	dimStyle    = lipgloss.NewStyle().Foreground(dimColor)
	accentStyle = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	keyStyle    = lipgloss.NewStyle().Foreground(accentColor)
)

// statusStyle colours a status code by class.
func statusStyle(code int) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch {
	case code >= 200 && code < 300:
		return base.Foreground(successColor)
	case code >= 300 && code < 400:
		return base.Foreground(accentColor)
	case code >= 400 && code < 500:
		return base.Foreground(warnColor)
	default:
		return base.Foreground(errorColor)
	}
}

func humanSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
