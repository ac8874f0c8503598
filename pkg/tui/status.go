package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ormasoftchile/shtrace/pkg/session"
	"github.com/ormasoftchile/shtrace/pkg/trace"
)

// statusBar renders the single status line: program name, the current
// location or exit report, an activity spinner, and key hints.
type statusBar struct {
	width int
}

func (b *statusBar) View(spin string, frames []trace.Frame, exit *session.ExitStatus, inputMode, waiting bool) string {
	left := headerStyle.Render("shtrace")
	switch {
	case exit != nil:
		style := statusDoneStyle
		if exit.Signaled {
			style = statusSignalStyle
		}
		left += "  " + style.Render(exit.Describe())
	case len(frames) > 0:
		top := frames[len(frames)-1]
		left += fmt.Sprintf("  %s:%d", filepath.Base(top.Script), top.Line)
		if !waiting {
			left += "  " + spin
		}
	default:
		left += "  " + spin + " starting"
	}

	right := keyBarText(exit != nil, inputMode, waiting)

	padding := b.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}
	return left + strings.Repeat(" ", padding) + right
}
