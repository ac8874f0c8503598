// Package tui implements the full-screen debugger interface: a source pane
// tracking the traced script's call stack, a numbered output console, and a
// status bar with context-sensitive key hints, rendered as a Bubble Tea app.
package tui

import "github.com/charmbracelet/lipgloss"

// Palette adapts to terminal capabilities via lipgloss.
var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
	colorWhite  = lipgloss.Color("255")
)

// --- Panel styles ---

var (
	panelBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim)

	panelTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan).
			Padding(0, 1)
)

// --- Source pane styles ---

var (
	frameHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorCyan)

	gutterStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	sourceLineStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	execLineStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorYellow)

	fragmentStyle = lipgloss.NewStyle().
			Background(colorYellow).
			Foreground(lipgloss.Color("0")).
			Bold(true)

	commandStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)
)

// --- Console styles ---

var (
	stdoutGutterStyle = lipgloss.NewStyle().
				Foreground(colorDim)

	stderrGutterStyle = lipgloss.NewStyle().
				Foreground(colorRed)

	diagGutterStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	stderrTextStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	diagTextStyle = lipgloss.NewStyle().
			Foreground(colorYellow)
)

// --- Status bar and key hints ---

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	statusDoneStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorGreen)

	statusSignalStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorRed)

	inputModeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(colorCyan).
			Padding(0, 1)

	keyStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	keyDescStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)

// --- Eval prompt and overlays ---

var (
	evalPromptStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	overlayBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorCyan).
			Padding(0, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(colorYellow)
)
