package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ormasoftchile/shtrace/pkg/protocol"
)

// Record kinds.
const (
	RecordEvent    = "event"
	RecordResponse = "response"
	RecordOutput   = "output"
	RecordExit     = "exit"
)

// Record is one line of a session transcript: a decoded trace event, the
// step answer sent for it, a chunk of child output, or the final exit
// status.
type Record struct {
	Time     time.Time       `json:"ts"`
	Kind     string          `json:"kind" jsonschema:"enum=event,enum=response,enum=output,enum=exit"`
	Event    *protocol.Event `json:"event,omitempty"`
	Response string          `json:"response,omitempty"`
	Stream   string          `json:"stream,omitempty" jsonschema:"enum=stdout,enum=stderr"`
	Text     string          `json:"text,omitempty"`
	Exit     *ExitRecord     `json:"exit,omitempty"`
}

// ExitRecord is the exit payload of a Record.
type ExitRecord struct {
	Code   int    `json:"code"`
	Signal string `json:"signal,omitempty"`
}

// Recorder appends session records to a JSONL transcript file. A nil
// Recorder discards everything, so call sites need no enablement checks.
type Recorder struct {
	file *os.File
	w    *bufio.Writer
	enc  *json.Encoder
}

// NewRecorder creates a recorder that appends to the given file.
func NewRecorder(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open record file: %w", err)
	}
	w := bufio.NewWriter(f)
	return &Recorder{file: f, w: w, enc: json.NewEncoder(w)}, nil
}

func (r *Recorder) write(rec Record) error {
	if r == nil {
		return nil
	}
	rec.Time = time.Now()
	if err := r.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	// Flush and sync at statement boundaries
	if err := r.w.Flush(); err != nil {
		return fmt.Errorf("flush record: %w", err)
	}
	if err := r.file.Sync(); err != nil {
		return fmt.Errorf("sync record: %w", err)
	}
	return nil
}

// Event records a decoded trace event.
func (r *Recorder) Event(ev protocol.Event) error {
	return r.write(Record{Kind: RecordEvent, Event: &ev})
}

// Response records the step answer sent to the child, in wire form
// without the trailing newline.
func (r *Recorder) Response(st protocol.Step) error {
	text := strings.TrimSuffix(string(st.Encode()), "\n")
	return r.write(Record{Kind: RecordResponse, Response: text})
}

// Output records a chunk of child output from the named stream.
func (r *Recorder) Output(stream, text string) error {
	return r.write(Record{Kind: RecordOutput, Stream: stream, Text: text})
}

// Exit records the final child status.
func (r *Recorder) Exit(st ExitStatus) error {
	return r.write(Record{Kind: RecordExit, Exit: &ExitRecord{Code: st.Code, Signal: st.SignalName()}})
}

// Close flushes and closes the transcript file.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	if err := r.w.Flush(); err != nil {
		return err
	}
	return r.file.Close()
}
