package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// helpText is the help overlay content.
const helpText = `# shtrace

Every statement of the traced script is announced before it runs. While a
statement is held you decide its fate; otherwise the script advances on
its own, pacing by the configured sleep.

## Stepping

- ` + "`n`" + ` run the held statement
- ` + "`s`" + ` skip it without running it
- ` + "`r`" + ` return from the current function or sourced script
- ` + "`c`" + ` resume automatic advancing
- ` + "`p`" + ` hold the next statement
- ` + "`e`" + ` evaluate an expression in the script, keeping the statement held

## Session

- ` + "`i`" + ` input mode: keys go to the script's stdin until Esc
- ` + "`PgUp`" + `/` + "`PgDn`" + ` scroll the console
- ` + "`q`" + ` terminate the script, or leave once it has finished
- ` + "`?`" + ` close this help
`

// renderHelpBox renders the help overlay at the given column width.
// Glamour renderers are built for one wrap width, so this runs when the
// terminal is resized, never per frame. Falls back to the raw markdown
// if rendering fails.
func renderHelpBox(width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return helpText
	}
	out, err := r.Render(helpText)
	if err != nil {
		return helpText
	}
	return strings.TrimRight(out, "\n")
}
