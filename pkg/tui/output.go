package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
)

// outputMode classifies console lines. The mode character leads each
// line's gutter.
type outputMode byte

const (
	modeStdout outputMode = ' '
	modeStderr outputMode = 'E'
	modeDiag   outputMode = '!'
)

// openLine is a console line still waiting for its newline.
type openLine struct {
	mode outputMode
	num  int
	text string
}

// outputPanel renders the child's stdout/stderr and session diagnostics
// as an append-only console with per-mode line numbers.
type outputPanel struct {
	viewport viewport.Model

	lines  []string // finalized rendered lines
	open   *openLine
	counts map[outputMode]int

	follow bool // stick to the bottom on append

	width  int
	height int
	ready  bool
}

func newOutputPanel() outputPanel {
	return outputPanel{
		counts: make(map[outputMode]int),
		follow: true,
	}
}

// SetSize updates the viewport dimensions.
func (p *outputPanel) SetSize(width, height int) {
	p.width = width
	p.height = height

	contentW := width - 4  // border padding
	contentH := height - 3 // title + border

	if contentW < 1 {
		contentW = 1
	}
	if contentH < 1 {
		contentH = 1
	}

	if !p.ready {
		p.viewport = viewport.New(contentW, contentH)
		p.ready = true
	} else {
		p.viewport.Width = contentW
		p.viewport.Height = contentH
	}
	p.refresh()
}

// Append adds raw text in the given mode. Text without a trailing newline
// leaves the last line open for continuation; a mode switch on a dirty
// open line forces a new line, while an open empty line is renumbered for
// the new mode instead.
func (p *outputPanel) Append(mode outputMode, text string) {
	for len(text) > 0 {
		seg, rest, nl := strings.Cut(text, "\n")
		if p.open != nil && p.open.mode != mode {
			if p.open.text == "" {
				p.counts[p.open.mode]--
				p.counts[mode]++
				p.open.mode = mode
				p.open.num = p.counts[mode]
			} else {
				p.closeOpen()
			}
		}
		if p.open == nil {
			p.counts[mode]++
			p.open = &openLine{mode: mode, num: p.counts[mode]}
		}
		p.open.text += seg
		if !nl {
			break
		}
		p.closeOpen()
		text = rest
	}
	p.refresh()
}

// End finalizes a dirty open line. Called once when the child exits.
func (p *outputPanel) End() {
	if p.open != nil && p.open.text != "" {
		p.closeOpen()
	}
	p.open = nil
	p.refresh()
}

func (p *outputPanel) closeOpen() {
	p.lines = append(p.lines, renderConsoleLine(p.open.mode, p.open.num, p.open.text))
	p.open = nil
}

// renderConsoleLine formats one console line with its mode gutter.
func renderConsoleLine(mode outputMode, num int, text string) string {
	gutter := fmt.Sprintf("%c%3d  ", mode, num)
	switch mode {
	case modeStderr:
		return stderrGutterStyle.Render(gutter) + stderrTextStyle.Render(text)
	case modeDiag:
		return diagGutterStyle.Render(gutter) + diagTextStyle.Render(text)
	}
	return stdoutGutterStyle.Render(gutter) + text
}

// PageUp scrolls up and stops following appends.
func (p *outputPanel) PageUp() {
	if p.ready {
		p.viewport.HalfViewUp()
		p.follow = false
	}
}

// PageDown scrolls down; reaching the bottom resumes following.
func (p *outputPanel) PageDown() {
	if p.ready {
		p.viewport.HalfViewDown()
		if p.viewport.AtBottom() {
			p.follow = true
		}
	}
}

// refresh re-renders the viewport content.
func (p *outputPanel) refresh() {
	if !p.ready {
		return
	}
	content := strings.Join(p.renderedLines(), "\n")
	p.viewport.SetContent(content)
	if p.follow {
		p.viewport.GotoBottom()
	}
}

func (p *outputPanel) renderedLines() []string {
	if p.open == nil {
		return p.lines
	}
	return append(append([]string{}, p.lines...),
		renderConsoleLine(p.open.mode, p.open.num, p.open.text))
}

// View renders the console panel.
func (p *outputPanel) View() string {
	title := panelTitle.Render("Console")

	var content string
	if p.ready {
		content = p.viewport.View()
	} else {
		content = "  Waiting for output..."
	}

	// Scroll indicator
	scrollInfo := ""
	if p.ready && p.viewport.TotalLineCount() > p.viewport.VisibleLineCount() {
		pct := p.viewport.ScrollPercent() * 100
		scrollInfo = fmt.Sprintf(" %3.0f%%", pct)
	}

	header := title
	if scrollInfo != "" {
		padding := p.width - 4 - len("Console") - len(scrollInfo)
		if padding < 0 {
			padding = 0
		}
		header = title + strings.Repeat(" ", padding) + keyDescStyle.Render(scrollInfo)
	}

	return panelBorder.Width(p.width).Height(p.height).Render(
		header + "\n" + content,
	)
}
