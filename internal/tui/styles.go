package tui

import "github.com/charmbracelet/lipgloss"

// Overtime palette: amber for the log itself, teal for the agent,
// violet for anything that runs past midnight.
var (
	amber  = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	teal   = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	violet = lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#A78BFA"}
	red    = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	muted  = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6B7280"}
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(amber).
			MarginBottom(1)

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder(), false, false, false, true).
			BorderForeground(amber).
			PaddingLeft(2)

	labelStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true)

	agentStyle = lipgloss.NewStyle().
			Foreground(teal).
			Bold(true)

	totalStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true).
			Underline(true)

	overnightStyle = lipgloss.NewStyle().
			Foreground(violet).
			Italic(true)

	checkedStyle = lipgloss.NewStyle().
			Foreground(teal)

	loggedStyle = lipgloss.NewStyle().
			Foreground(teal).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(red).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(muted)

	keysStyle = lipgloss.NewStyle().
			Foreground(muted).
			Faint(true).
			MarginTop(1)
)
