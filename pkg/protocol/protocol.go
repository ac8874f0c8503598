// Package protocol implements the wire format spoken between the debugger
// and the traced shell: debug-event lines arriving on the trace stream and
// step-command lines written back on the step stream.
package protocol

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Tag is the marker every debug-event line must start with. Anything else
// on the trace stream is a protocol violation.
const Tag = "DBG"

// fieldSep separates command, depth and subshell inside an event line.
// A command containing it is reassembled on decode from the interior
// fields; encoders never emit one.
const fieldSep = "!!!"

// Event is one decoded trace message: the interpreter is about to execute
// Command at Line of Script, at call-nesting Depth, in subshell generation
// Subshell (0 = main shell).
type Event struct {
	Line     int
	Script   string
	Command  string
	Depth    int
	Subshell int
}

// ParseEvent decodes a single debug-event line of the shape
//
//	DBG <line> <script>!!!<command>!!!<depth>!!!<subshell>
//
// The trailing newline may be present or already stripped. Command is
// trimmed of surrounding whitespace; interior whitespace, including the
// embedded newlines of a multi-line statement, is preserved. A command
// containing the separator itself splits into extra interior fields,
// which are joined back: depth and subshell are always the last two.
func ParseEvent(line string) (Event, error) {
	line = strings.TrimRight(line, "\r\n")

	tag, rest, ok := strings.Cut(line, " ")
	if !ok {
		return Event{}, fmt.Errorf("debug line %q: missing tag separator", line)
	}
	if tag != Tag {
		return Event{}, fmt.Errorf("debug line %q: unexpected tag %q", line, tag)
	}

	parts := strings.Split(rest, fieldSep)
	if len(parts) < 4 {
		return Event{}, fmt.Errorf("debug line %q: want 4 fields, got %d", line, len(parts))
	}

	linenoStr, script, ok := strings.Cut(parts[0], " ")
	if !ok {
		return Event{}, fmt.Errorf("debug line %q: missing script path", line)
	}
	lineno, err := strconv.Atoi(linenoStr)
	if err != nil {
		return Event{}, fmt.Errorf("debug line %q: line number: %w", line, err)
	}
	depth, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return Event{}, fmt.Errorf("debug line %q: depth: %w", line, err)
	}
	subshell, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return Event{}, fmt.Errorf("debug line %q: subshell: %w", line, err)
	}

	return Event{
		Line:     lineno,
		Script:   script,
		Command:  strings.TrimSpace(strings.Join(parts[1:len(parts)-1], fieldSep)),
		Depth:    depth,
		Subshell: subshell,
	}, nil
}

// ScanEvents is a bufio.SplitFunc framing debug events on the trace
// stream. $BASH_COMMAND arrives verbatim, so a multi-line statement
// carries embedded newlines: a newline only closes an event when the
// text before it already ends in the <depth> and <subshell> fields.
func ScanEvents(data []byte, atEOF bool) (int, []byte, error) {
	from := 0
	for {
		i := bytes.IndexByte(data[from:], '\n')
		if i < 0 {
			break
		}
		end := from + i
		if eventComplete(data[:end]) {
			return end + 1, data[:end], nil
		}
		from = end + 1
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// eventComplete reports whether b ends in the !!!<depth>!!!<subshell>
// tail that closes every event line.
func eventComplete(b []byte) bool {
	sep := []byte(fieldSep)
	last := bytes.LastIndex(b, sep)
	if last < 0 || !allDigits(b[last+len(sep):]) {
		return false
	}
	prev := bytes.LastIndex(b[:last], sep)
	return prev >= 0 && allDigits(b[prev+len(sep):last])
}

func allDigits(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// EncodeEvent renders an Event back to its wire form, newline-terminated.
// The inverse of ParseEvent for all valid field combinations.
func EncodeEvent(ev Event) ([]byte, error) {
	if strings.Contains(ev.Command, fieldSep) {
		return nil, fmt.Errorf("command %q contains the field separator", ev.Command)
	}
	s := fmt.Sprintf("%s %d %s%s%s%s%d%s%d\n",
		Tag, ev.Line, ev.Script, fieldSep, ev.Command, fieldSep, ev.Depth, fieldSep, ev.Subshell)
	return []byte(s), nil
}

// StepKind enumerates the operator/policy decisions answered to the child.
type StepKind int

const (
	// StepAdvance runs the reported statement.
	StepAdvance StepKind = iota
	// StepSkip treats the reported statement as a no-op.
	StepSkip
	// StepReturn unwinds to the caller.
	StepReturn
	// StepEval runs an auxiliary expression without advancing; the pending
	// event stays pending and expects a further answer.
	StepEval
)

// String returns the key-hint name of the step kind.
func (k StepKind) String() string {
	switch k {
	case StepAdvance:
		return "advance"
	case StepSkip:
		return "skip"
	case StepReturn:
		return "return"
	case StepEval:
		return "eval"
	}
	return fmt.Sprintf("step(%d)", int(k))
}

// Step is one answer on the step stream. Expr is only meaningful for
// StepEval.
type Step struct {
	Kind StepKind
	Expr string
}

// Advance, Skip and Return are the fixed-form step commands.
var (
	Advance = Step{Kind: StepAdvance}
	Skip    = Step{Kind: StepSkip}
	Return  = Step{Kind: StepReturn}
)

// Eval builds an eval step command for expr.
func Eval(expr string) Step {
	return Step{Kind: StepEval, Expr: expr}
}

// Encode renders the exact line written on the step stream,
// newline-terminated.
func (s Step) Encode() []byte {
	switch s.Kind {
	case StepAdvance:
		return []byte("0\n")
	case StepSkip:
		return []byte("1\n")
	case StepReturn:
		return []byte("2\n")
	case StepEval:
		return []byte("EVAL " + s.Expr + "\n")
	}
	return []byte("0\n")
}

// ParseStep decodes a step-command line. The inverse of Encode.
func ParseStep(line string) (Step, error) {
	line = strings.TrimRight(line, "\r\n")
	switch line {
	case "0":
		return Advance, nil
	case "1":
		return Skip, nil
	case "2":
		return Return, nil
	}
	if expr, ok := strings.CutPrefix(line, "EVAL "); ok {
		return Eval(expr), nil
	}
	return Step{}, fmt.Errorf("step line %q: unknown command", line)
}
