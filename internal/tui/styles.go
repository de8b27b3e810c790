// Package tui provides the terminal front-end of the demo viewer.
//
// The TUI uses Bubble Tea for the application framework and Lipgloss for
// styling. It lists the demos a server exposes, runs the selected one and
// re-runs it whenever its source file changes.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-demo-viewer/internal/poller"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#06B6D4") // Cyan

	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#EF4444") // Red
	colorInfo    = lipgloss.Color("#3B82F6") // Blue

	colorText      = lipgloss.Color("#E5E7EB") // Light gray
	colorTextMuted = lipgloss.Color("#9CA3AF") // Medium gray
	colorTextDim   = lipgloss.Color("#6B7280") // Dark gray
	colorBorder    = lipgloss.Color("#374151") // Border gray
)

// =============================================================================
// Base Styles
// =============================================================================

var (
	mutedStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	outputStyle = lipgloss.NewStyle().
			Foreground(colorText)

	errorTextStyle = lipgloss.NewStyle().
			Foreground(colorError)
)

// =============================================================================
// Status Indicator Styles
// =============================================================================

var (
	statusOK = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	statusWarning = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	statusError = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	statusInfo = lipgloss.NewStyle().
			Foreground(colorInfo).
			Bold(true)
)

// =============================================================================
// Layout Styles
// =============================================================================

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorPrimary).
			Bold(true).
			Padding(0, 1).
			MarginBottom(1)

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(colorBorder)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			MarginTop(1)
)

// =============================================================================
// List Styles
// =============================================================================

var (
	itemStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			PaddingLeft(2)

	cursorStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	activeItemStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)
)

// =============================================================================
// Value Styles
// =============================================================================

var (
	valueStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			Width(14)
)

// StateLabel renders the poller state as a colored badge.
func StateLabel(s poller.State) string {
	switch s {
	case poller.Running:
		return statusInfo.Render("● RUNNING")
	case poller.Displaying:
		return statusOK.Render("● READY")
	default:
		return dimStyle.Render("○ IDLE")
	}
}

// LiveReloadLabel renders the live reload switch.
func LiveReloadLabel(on bool) string {
	if on {
		return statusOK.Render("live reload: on")
	}
	return statusWarning.Render("live reload: off")
}

// ExitStyle picks a style for an exit code.
func ExitStyle(code int) lipgloss.Style {
	if code == 0 {
		return statusOK
	}
	return statusError
}

// RenderKeyValue renders a label-value pair.
func RenderKeyValue(label string, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		labelStyle.Render(label+":"),
		valueStyle.Render(value),
	)
}
