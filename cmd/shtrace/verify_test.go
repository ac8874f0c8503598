package main

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ormasoftchile/shtrace/pkg/schema"
	"github.com/ormasoftchile/shtrace/pkg/session"
)

// needBash skips tests that spawn a real shell when none is available.
func needBash(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
}

// recordSession runs a script headlessly with recording on and returns
// the transcript path.
func recordSession(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "run.sh")
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatal(err)
	}
	record := filepath.Join(dir, "session.jsonl")
	s, err := session.New(session.Config{
		Script:   script,
		Headless: true,
		Record:   record,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return record
}

// TestVerifyCmd_RecordedSession verifies that a transcript written by a
// live session passes schema verification end to end.
func TestVerifyCmd_RecordedSession(t *testing.T) {
	needBash(t)
	record := recordSession(t, "echo one\necho two\n")

	errs, err := schema.VerifyFile(record)
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) > 0 {
		t.Errorf("recorded transcript rejected: %v", errs[0])
	}
}

// TestVerifyCmd_MangledLine verifies that damage to a transcript is
// pinned to the offending line number.
func TestVerifyCmd_MangledLine(t *testing.T) {
	needBash(t)
	record := recordSession(t, "true\n")

	f, err := os.OpenFile(record, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`{"ts":"2026-01-01T00:00:00Z","kind":"bogus"}` + "\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	data, err := os.ReadFile(record)
	if err != nil {
		t.Fatal(err)
	}
	wantLine := len(strings.Split(strings.TrimRight(string(data), "\n"), "\n"))

	errs, err := schema.VerifyFile(record)
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) != 1 {
		t.Fatalf("got %d line errors, want 1: %v", len(errs), errs)
	}
	if errs[0].Line != wantLine {
		t.Errorf("Line = %d, want %d", errs[0].Line, wantLine)
	}
}
