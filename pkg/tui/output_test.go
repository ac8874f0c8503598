package tui

import (
	"strings"
	"testing"
)

// TestConsoleNumbering verifies per-mode line numbers advance
// independently.
func TestConsoleNumbering(t *testing.T) {
	p := newOutputPanel()
	p.Append(modeStdout, "one\ntwo\n")
	p.Append(modeStderr, "boom\n")
	p.Append(modeStdout, "three\n")

	want := []string{
		renderConsoleLine(modeStdout, 1, "one"),
		renderConsoleLine(modeStdout, 2, "two"),
		renderConsoleLine(modeStderr, 1, "boom"),
		renderConsoleLine(modeStdout, 3, "three"),
	}
	if len(p.lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %q", len(p.lines), len(want), p.lines)
	}
	for i := range want {
		if p.lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, p.lines[i], want[i])
		}
	}
}

// TestConsoleContinuation verifies a chunk without a newline leaves the
// line open and later chunks extend it.
func TestConsoleContinuation(t *testing.T) {
	p := newOutputPanel()
	p.Append(modeStdout, "par")
	if p.open == nil || p.open.text != "par" {
		t.Fatalf("open line = %+v", p.open)
	}
	p.Append(modeStdout, "tial\n")
	if p.open != nil {
		t.Fatalf("line still open after newline: %+v", p.open)
	}
	if len(p.lines) != 1 || p.lines[0] != renderConsoleLine(modeStdout, 1, "partial") {
		t.Errorf("lines = %q", p.lines)
	}
}

// TestConsoleModeSwitch verifies a dirty open line is finalized when the
// mode changes mid-line.
func TestConsoleModeSwitch(t *testing.T) {
	p := newOutputPanel()
	p.Append(modeStdout, "abc")
	p.Append(modeStderr, "boom\n")

	want := []string{
		renderConsoleLine(modeStdout, 1, "abc"),
		renderConsoleLine(modeStderr, 1, "boom"),
	}
	if len(p.lines) != 2 || p.lines[0] != want[0] || p.lines[1] != want[1] {
		t.Errorf("lines = %q, want %q", p.lines, want)
	}
}

// TestConsoleEnd verifies End finalizes a dirty line at exit.
func TestConsoleEnd(t *testing.T) {
	p := newOutputPanel()
	p.Append(modeStdout, "no newline")
	p.End()
	if p.open != nil {
		t.Fatal("open line survived End")
	}
	if len(p.lines) != 1 || !strings.Contains(p.lines[0], "no newline") {
		t.Errorf("lines = %q", p.lines)
	}

	// End on a clean console is a no-op.
	p.End()
	if len(p.lines) != 1 {
		t.Errorf("End appended a phantom line: %q", p.lines)
	}
}

// TestConsoleFollow verifies scrolling up stops the console following
// appends and paging back down resumes it.
func TestConsoleFollow(t *testing.T) {
	p := newOutputPanel()
	p.SetSize(40, 10)
	for i := 0; i < 50; i++ {
		p.Append(modeStdout, "line\n")
	}
	if !p.follow {
		t.Fatal("console should follow by default")
	}
	p.PageUp()
	if p.follow {
		t.Fatal("PageUp should stop following")
	}
	for i := 0; i < 20 && !p.follow; i++ {
		p.PageDown()
	}
	if !p.follow {
		t.Error("paging to the bottom should resume following")
	}
}
