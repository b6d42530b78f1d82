// Package ui provides terminal styling for cebg output.
// Colors adapt to light/dark terminals and degrade to plain text
// when stdout is not a TTY, so piped output stays grep-friendly.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#2aa198",
		Dark:  "#4ec9b0",
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#b58900",
		Dark:  "#dcdcaa",
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#dc322f",
		Dark:  "#f48771",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#93a1a1",
		Dark:  "#6a737d",
	}
)

var (
	passStyle  = lipgloss.NewStyle().Foreground(ColorPass)
	warnStyle  = lipgloss.NewStyle().Foreground(ColorWarn)
	failStyle  = lipgloss.NewStyle().Foreground(ColorFail)
	mutedStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	headStyle  = lipgloss.NewStyle().Bold(true)
)

const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"
)

// RenderPass renders text in the pass (green) style.
func RenderPass(s string) string { return passStyle.Render(s) }

// RenderWarn renders text in the warning (yellow) style.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderFail renders text in the failure (red) style.
func RenderFail(s string) string { return failStyle.Render(s) }

// RenderMuted renders text in the muted (gray) style.
func RenderMuted(s string) string { return mutedStyle.Render(s) }

// RenderHeading renders a bold section heading.
func RenderHeading(s string) string { return headStyle.Render(s) }
