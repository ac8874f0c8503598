package tui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ormasoftchile/shtrace/pkg/source"
	"github.com/ormasoftchile/shtrace/pkg/trace"
)

// callerRows is the display budget per non-executing frame: a header plus
// two context lines.
const callerRows = 3

// minTopRows keeps the executing frame readable when the stack is deep;
// outermost callers drop out of view first.
const minTopRows = 4

// sourcePane renders the live call stack with source context. Caller
// frames are compact; the executing frame fills the remaining height,
// centered on its current line when the file is taller than the pane.
type sourcePane struct {
	scripts *source.Cache

	width  int
	height int
}

func newSourcePane(scripts *source.Cache) sourcePane {
	return sourcePane{scripts: scripts}
}

// SetSize updates the pane dimensions.
func (p *sourcePane) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// View renders the stack outermost first. spans run parallel to frames.
func (p *sourcePane) View(frames []trace.Frame, spans []source.Span) string {
	contentH := p.height - 3
	contentW := p.width - 4
	if contentH < 1 {
		contentH = 1
	}
	if contentW < 8 {
		contentW = 8
	}

	var lines []string
	if len(frames) == 0 {
		lines = []string{"  Waiting for the first statement..."}
	} else {
		n := len(frames)
		callers := n - 1
		for callers > 0 && contentH-callers*callerRows-1 < minTopRows {
			callers--
		}
		first := n - 1 - callers
		for i := first; i < n-1; i++ {
			lines = append(lines, p.frameHeader(frames[i], contentW))
			lines = append(lines, p.frameLines(frames[i], spans[i], 2, contentW)...)
		}
		topRows := contentH - len(lines) - 1
		if topRows < 1 {
			topRows = 1
		}
		lines = append(lines, p.frameHeader(frames[n-1], contentW))
		lines = append(lines, p.frameLines(frames[n-1], spans[n-1], topRows, contentW)...)
	}

	if len(lines) > contentH {
		lines = lines[:contentH]
	}
	for len(lines) < contentH {
		lines = append(lines, "")
	}

	title := panelTitle.Render("Source")
	return panelBorder.Width(p.width).Height(p.height).Render(
		title + "\n" + strings.Join(lines, "\n"),
	)
}

func (p *sourcePane) frameHeader(f trace.Frame, w int) string {
	return frameHeaderStyle.Render(truncate(f.Script, w))
}

// frameLines renders up to h source lines around the frame's current
// line. Without source text the raw command stands in.
func (p *sourcePane) frameLines(f trace.Frame, span source.Span, h, w int) []string {
	script, _ := p.scripts.Get(f.Script)
	if script == nil || len(script.Lines) == 0 {
		return []string{commandStyle.Render(truncate("  $ "+f.Command, w))}
	}

	total := len(script.Lines)
	start := f.Line - 1 - (h-1)/2
	if start < 0 {
		start = 0
	}
	end := start + h
	if end > total {
		end = total
		start = end - h
		if start < 0 {
			start = 0
		}
	}

	out := make([]string, 0, h)
	for ln := start + 1; ln <= end; ln++ {
		if span.ShowCommand && ln == span.First {
			out = append(out, commandStyle.Render(truncate("  $ "+f.Command, w)))
		}
		out = append(out, renderSourceLine(ln, script.Line(ln), span, w))
	}
	if len(out) > h {
		out = out[:h]
	}
	return out
}

// renderSourceLine formats one numbered source line, highlighting the
// executing span and, when located, the exact fragment.
func renderSourceLine(n int, text string, span source.Span, w int) string {
	gutter := fmt.Sprintf("%2d  ", n)
	avail := w - len(gutter)
	in := n >= span.First && n <= span.Last

	if in && span.Pointed && n == span.Line {
		c0, c1 := span.Col, span.Col+span.Len
		if c0 > len(text) {
			c0 = len(text)
		}
		if c1 > len(text) {
			c1 = len(text)
		}
		segs := clipSegments(avail, text[:c0], text[c0:c1], text[c1:])
		return gutterStyle.Render(gutter) +
			execLineStyle.Render(segs[0]) +
			fragmentStyle.Render(segs[1]) +
			execLineStyle.Render(segs[2])
	}

	text = truncate(text, avail)
	if in {
		return gutterStyle.Render(gutter) + execLineStyle.Render(text)
	}
	return gutterStyle.Render(gutter) + sourceLineStyle.Render(text)
}

// truncate shortens s to at most w display columns.
func truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	return runewidth.Truncate(s, w, "…")
}

// clipSegments truncates consecutive segments against one shared width
// budget, preserving the boundaries between them.
func clipSegments(w int, segs ...string) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		if w <= 0 {
			out[i] = ""
			continue
		}
		t := truncate(s, w)
		out[i] = t
		w -= runewidth.StringWidth(t)
	}
	return out
}
