package source

import "strings"

// Span is the source range to highlight as currently executing. First and
// Last bound the physical lines (1-based, inclusive). When Pointed is set
// the resolver located the command as a fragment: Line/Col/Len give its
// exact position (Col is a byte offset into the expanded line). When
// ShowCommand is set the resolution was ambiguous and the raw command text
// should be rendered just above the span instead of guessing a position.
type Span struct {
	First int
	Last  int

	Line    int
	Col     int
	Len     int
	Pointed bool

	ShowCommand bool
}

// Resolver maps reported (line, command) pairs to spans within one script.
// It keeps the last fragment-match column so that consecutive subshell
// statements reported against the same physical line advance past earlier
// identical fragments instead of re-matching them.
type Resolver struct {
	script   *Script
	lastCol  int
	lastLine int
}

// NewResolver returns a resolver over script. A nil script is allowed and
// yields degraded whole-line spans with the raw command shown.
func NewResolver(script *Script) *Resolver {
	return &Resolver{script: script}
}

// Resolve locates command, reported against the 1-based line, in the
// script source. The subshell id selects whether the persisted match
// column applies: subshell reporting tends to repeat the containing line
// for consecutive statements, so the fragment search resumes after the
// previous match rather than restarting at column 0.
//
// Ambiguity never fails: when the fragment cannot be placed confidently
// the span falls back to whole lines with ShowCommand set.
func (r *Resolver) Resolve(line int, command string, subshell int) Span {
	if r.script == nil || len(r.script.Lines) == 0 {
		if line < 1 {
			line = 1
		}
		return Span{First: line, Last: line, ShowCommand: command != ""}
	}

	raw := r.script.Lines
	if line < 1 {
		line = 1
	}
	if line > len(raw) {
		line = len(raw)
	}
	if line != r.lastLine {
		r.lastLine = line
		r.lastCol = 0
	}

	// Extend over escaped line ends (backslash before newline).
	first, last := line, line
	for last < len(raw) && strings.HasSuffix(raw[last-1], "\\") {
		last++
	}

	trimmed := make([]string, 0, last-first+1)
	for i := first; i <= last; i++ {
		trimmed = append(trimmed, strings.TrimSpace(strings.TrimSuffix(raw[i-1], "\\")))
	}
	merged := strings.Join(trimmed, " ")

	if command != "" && len(command) < len(merged) {
		return r.resolveFragment(first, last, trimmed, merged, command, subshell)
	}

	// Whole-line span. A multi-line literal is reported by its last line
	// only; walk the start back over the embedded newlines.
	first -= strings.Count(command, "\n")
	if first < 1 {
		first = 1
	}
	return Span{First: first, Last: last}
}

// resolveFragment searches for command inside merged and converts the match
// offset back to a (line, column) position in the raw source.
func (r *Resolver) resolveFragment(first, last int, trimmed []string, merged, command string, subshell int) Span {
	start := 0
	if subshell != 0 && r.lastCol <= len(merged) {
		start = r.lastCol
	}

	pos := -1
	if idx := strings.Index(merged[start:], command); idx >= 0 {
		pos = start + idx
	}

	// Without a persisted column a repeated fragment has no tie-break;
	// refuse to guess which occurrence is running.
	if pos < 0 || (subshell == 0 && strings.Count(merged, command) > 1) {
		return Span{First: first, Last: last, ShowCommand: true}
	}
	r.lastCol = pos + 1

	line, col := r.locate(first, trimmed, pos)
	return Span{
		First:   first,
		Last:    last,
		Line:    line,
		Col:     col,
		Len:     len(command),
		Pointed: true,
	}
}

// locate converts an offset inside the merged text to a (line, column)
// pair, adjusting for the leading whitespace stripped from each line.
func (r *Resolver) locate(first int, trimmed []string, pos int) (int, int) {
	acc := 0
	for i, t := range trimmed {
		if pos < acc+len(t) || i == len(trimmed)-1 {
			within := pos - acc
			if within < 0 {
				within = 0
			}
			rawLine := r.script.Lines[first-1+i]
			lead := len(rawLine) - len(strings.TrimLeft(rawLine, " "))
			return first + i, lead + within
		}
		acc += len(t) + 1
	}
	return first, 0
}
