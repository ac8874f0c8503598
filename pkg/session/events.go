package session

import (
	"github.com/ormasoftchile/shtrace/pkg/protocol"
	"github.com/ormasoftchile/shtrace/pkg/trace"
)

// Event is a session notification delivered to the operator frontend.
// Frontends must drain the Events channel until it closes after an
// ExitedEvent; headless sessions emit no events.
type Event interface{ isEvent() }

// OutputEvent carries a chunk of the child's stdout or stderr. Chunks are
// raw reads, not lines; a chunk may hold several lines or a partial one.
type OutputEvent struct {
	Text   string
	Stderr bool
}

// DiagEvent carries a diagnostic message for the operator console.
type DiagEvent struct {
	Text string
}

// TraceEvent reports that the child reached a statement. Frames is a
// snapshot of the call stack with the traced script outermost and the
// executing context last; the wrapper's own frame is already stripped.
// Waiting is true when the session holds the statement for an operator
// step decision, false when it was answered automatically.
type TraceEvent struct {
	Frames  []trace.Frame
	Waiting bool
}

// ExitedEvent reports that the child exited. It is the final event.
type ExitedEvent struct {
	Status ExitStatus
}

func (OutputEvent) isEvent() {}
func (DiagEvent) isEvent()   {}
func (TraceEvent) isEvent()  {}
func (ExitedEvent) isEvent() {}

// commandKind discriminates operator commands entering the session loop.
type commandKind int

const (
	cmdStep commandKind = iota
	cmdPause
	cmdContinue
	cmdQuit
	cmdInput
)

// command is one operator request, serialized through the session loop so
// that all mutable state stays on a single goroutine.
type command struct {
	kind  commandKind
	step  protocol.Step
	input []byte
}
