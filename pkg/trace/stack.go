// Package trace models the traced script's nested-execution state: a stack
// of frames reconstructed from the flat debug-event stream.
package trace

import (
	"fmt"

	"github.com/ormasoftchile/shtrace/pkg/protocol"
)

// Frame is one active lexical execution context. Script and Depth are fixed
// at creation; Line, Command and Subshell track the statement currently
// executing while the frame is topmost.
type Frame struct {
	Script   string
	Depth    int
	Line     int
	Command  string
	Subshell int
}

// Stack is the ordered set of live frames, bottom = the tracing wrapper's
// own frame (created by the first event), top = the currently executing
// context. Depths strictly increase from bottom to top and no two frames
// share a depth.
type Stack struct {
	frames []*Frame
}

// NewStack returns an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Len reports the number of live frames.
func (s *Stack) Len() int {
	return len(s.frames)
}

// Top returns the currently executing frame, or nil before the first event.
func (s *Stack) Top() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Wrapper returns the bottom frame, the tracing wrapper's own context.
// Nil before the first event.
func (s *Stack) Wrapper() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[0]
}

// IsWrapper reports whether f is the wrapper frame. The wrapper is
// distinguished by identity, not by script path.
func (s *Stack) IsWrapper(f *Frame) bool {
	return len(s.frames) > 0 && f == s.frames[0]
}

// Frames returns the live frames bottom to top. The slice is shared; the
// caller must not mutate it.
func (s *Stack) Frames() []*Frame {
	return s.frames
}

// Snapshot returns a value copy of the live frames bottom to top, safe to
// hand to another goroutine.
func (s *Stack) Snapshot() []Frame {
	out := make([]Frame, len(s.frames))
	for i, f := range s.frames {
		out[i] = *f
	}
	return out
}

// Apply folds one debug event into the stack and returns the resulting top
// frame. A depth greater than the top's pushes a new frame (entering a
// sourced file, function or subshell); a depth one below the top's pops the
// returned-from frame; an equal depth updates the top in place. The
// interpreter reports at most one depth change per event, so anything
// needing more than one pop, and any pop that would remove the wrapper
// frame, is a fatal consistency error.
func (s *Stack) Apply(ev protocol.Event) (*Frame, error) {
	if len(s.frames) == 0 || ev.Depth > s.Top().Depth {
		f := &Frame{
			Script:   ev.Script,
			Depth:    ev.Depth,
			Line:     ev.Line,
			Command:  ev.Command,
			Subshell: ev.Subshell,
		}
		s.frames = append(s.frames, f)
		return f, nil
	}

	if ev.Depth < s.Top().Depth {
		if len(s.frames) == 1 {
			return nil, fmt.Errorf("depth %d below wrapper frame depth %d", ev.Depth, s.Top().Depth)
		}
		s.frames = s.frames[:len(s.frames)-1]
	}

	top := s.Top()
	if top.Depth != ev.Depth {
		return nil, fmt.Errorf("depth jumped from %d to %d in one event (%s:%d)",
			top.Depth, ev.Depth, ev.Script, ev.Line)
	}
	top.Line = ev.Line
	top.Command = ev.Command
	top.Subshell = ev.Subshell
	return top, nil
}
