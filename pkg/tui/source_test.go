package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/ormasoftchile/shtrace/pkg/source"
	"github.com/ormasoftchile/shtrace/pkg/trace"
)

func writeNumberedScript(t *testing.T, lines int) string {
	t.Helper()
	var b strings.Builder
	for i := 1; i <= lines; i++ {
		fmt.Fprintf(&b, "echo %d\n", i)
	}
	path := filepath.Join(t.TempDir(), "long.sh")
	if err := os.WriteFile(path, []byte(b.String()), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestFrameLinesCentering verifies the executing frame's window centers
// on the current line.
func TestFrameLinesCentering(t *testing.T) {
	path := writeNumberedScript(t, 50)
	p := newSourcePane(source.NewCache())

	f := trace.Frame{Script: path, Line: 25, Command: "echo 25"}
	span := source.Span{First: 25, Last: 25}
	lines := p.frameLines(f, span, 9, 60)

	if len(lines) != 9 {
		t.Fatalf("got %d lines, want 9", len(lines))
	}
	// Window should run 21..29 with line 25 in the middle.
	if !strings.Contains(lines[0], "echo 21") {
		t.Errorf("first line = %q, want echo 21", lines[0])
	}
	if !strings.Contains(lines[4], "echo 25") {
		t.Errorf("middle line = %q, want echo 25", lines[4])
	}
	if !strings.Contains(lines[8], "echo 29") {
		t.Errorf("last line = %q, want echo 29", lines[8])
	}
}

// TestFrameLinesClampsAtEdges verifies the window stays in range near
// the start and end of the file.
func TestFrameLinesClampsAtEdges(t *testing.T) {
	path := writeNumberedScript(t, 10)
	p := newSourcePane(source.NewCache())

	top := p.frameLines(trace.Frame{Script: path, Line: 1}, source.Span{First: 1, Last: 1}, 5, 60)
	if !strings.Contains(top[0], "echo 1") {
		t.Errorf("window at top starts with %q", top[0])
	}

	bottom := p.frameLines(trace.Frame{Script: path, Line: 10}, source.Span{First: 10, Last: 10}, 5, 60)
	if !strings.Contains(bottom[len(bottom)-1], "echo 10") {
		t.Errorf("window at bottom ends with %q", bottom[len(bottom)-1])
	}
}

// TestFrameLinesMissingSource verifies the raw command stands in when the
// script cannot be loaded.
func TestFrameLinesMissingSource(t *testing.T) {
	p := newSourcePane(source.NewCache())
	lines := p.frameLines(trace.Frame{Script: "/nonexistent.sh", Line: 3, Command: "echo x"}, source.Span{}, 5, 60)
	if len(lines) != 1 || !strings.Contains(lines[0], "$ echo x") {
		t.Errorf("fallback lines = %q", lines)
	}
}

// TestRenderSourceLineFragment verifies a pointed span keeps the text
// intact around the fragment split.
func TestRenderSourceLineFragment(t *testing.T) {
	span := source.Span{First: 2, Last: 2, Line: 2, Col: 3, Len: 4, Pointed: true}
	got := renderSourceLine(2, "  (date; hostname)", span, 60)
	if !strings.Contains(got, "(date; hostname)") {
		t.Errorf("fragment render mangled the line: %q", got)
	}
}

// TestShowCommandLine verifies an ambiguous resolution prints the raw
// command above the span.
func TestShowCommandLine(t *testing.T) {
	path := writeNumberedScript(t, 5)
	p := newSourcePane(source.NewCache())

	f := trace.Frame{Script: path, Line: 3, Command: "date"}
	span := source.Span{First: 3, Last: 3, ShowCommand: true}
	lines := p.frameLines(f, span, 5, 60)

	joined := strings.Join(lines, "\n")
	cmdAt := strings.Index(joined, "$ date")
	lineAt := strings.Index(joined, "echo 3")
	if cmdAt < 0 {
		t.Fatalf("command line missing: %q", lines)
	}
	if lineAt < cmdAt {
		t.Errorf("command should render above the span: %q", lines)
	}
}

// TestTruncate verifies display-width truncation is rune aware.
func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Errorf("no-op truncate = %q", got)
	}
	got := truncate("héllo wörld", 7)
	if w := lipgloss.Width(got); w > 7 {
		t.Errorf("truncated width = %d: %q", w, got)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncation marker missing: %q", got)
	}
	if got := truncate("anything", 0); got != "" {
		t.Errorf("zero width = %q", got)
	}
}

// TestClipSegments verifies consecutive segments share one width budget.
func TestClipSegments(t *testing.T) {
	segs := clipSegments(10, "abcdef", "ghi", "jklmno")
	if segs[0] != "abcdef" {
		t.Errorf("seg 0 = %q", segs[0])
	}
	if segs[1] != "ghi" {
		t.Errorf("seg 1 = %q", segs[1])
	}
	total := lipgloss.Width(segs[0] + segs[1] + segs[2])
	if total > 10 {
		t.Errorf("total width = %d", total)
	}
}
