package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/ormasoftchile/shtrace/pkg/protocol"
)

// TestRecorderTranscript verifies that a session's records land as one
// JSON object per line, in order, with the kind-specific payloads.
func TestRecorderTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	rec, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	ev := protocol.Event{Line: 3, Script: "run.sh", Command: "date", Depth: 3}
	if err := rec.Event(ev); err != nil {
		t.Fatalf("Event: %v", err)
	}
	if err := rec.Response(protocol.Advance); err != nil {
		t.Fatalf("Response: %v", err)
	}
	if err := rec.Output("stdout", "hi\n"); err != nil {
		t.Fatalf("Output: %v", err)
	}
	if err := rec.Exit(ExitStatus{Code: 143, Signal: unix.SIGTERM, Signaled: true}); err != nil {
		t.Fatalf("Exit: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}

	var records []Record
	for i, line := range lines {
		var r Record
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			t.Fatalf("line %d: %v", i+1, err)
		}
		if r.Time.IsZero() {
			t.Errorf("line %d: missing timestamp", i+1)
		}
		records = append(records, r)
	}

	wantKinds := []string{RecordEvent, RecordResponse, RecordOutput, RecordExit}
	for i, want := range wantKinds {
		if records[i].Kind != want {
			t.Errorf("record %d kind = %q, want %q", i, records[i].Kind, want)
		}
	}
	if records[0].Event == nil || *records[0].Event != ev {
		t.Errorf("event payload = %+v, want %+v", records[0].Event, ev)
	}
	if records[1].Response != "0" {
		t.Errorf("response = %q, want %q", records[1].Response, "0")
	}
	if records[2].Stream != "stdout" || records[2].Text != "hi\n" {
		t.Errorf("output payload = %q %q", records[2].Stream, records[2].Text)
	}
	if records[3].Exit == nil || records[3].Exit.Code != 143 || records[3].Exit.Signal != "SIGTERM" {
		t.Errorf("exit payload = %+v", records[3].Exit)
	}
}

// TestRecorderEvalResponse verifies eval answers keep their expression in
// the transcript.
func TestRecorderEvalResponse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	rec, err := NewRecorder(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := rec.Response(protocol.Eval("echo $x")); err != nil {
		t.Fatal(err)
	}
	rec.Close()

	b, _ := os.ReadFile(path)
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		t.Fatal(err)
	}
	if r.Response != "EVAL echo $x" {
		t.Errorf("response = %q, want %q", r.Response, "EVAL echo $x")
	}
}

// TestRecorderNil verifies that a nil recorder swallows everything.
func TestRecorderNil(t *testing.T) {
	var rec *Recorder
	if err := rec.Event(protocol.Event{}); err != nil {
		t.Errorf("Event on nil: %v", err)
	}
	if err := rec.Response(protocol.Advance); err != nil {
		t.Errorf("Response on nil: %v", err)
	}
	if err := rec.Output("stdout", "x"); err != nil {
		t.Errorf("Output on nil: %v", err)
	}
	if err := rec.Exit(ExitStatus{}); err != nil {
		t.Errorf("Exit on nil: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Errorf("Close on nil: %v", err)
	}
}
