// Package breakpoint parses breakpoint specs and matches them against
// trace frames.
package breakpoint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ormasoftchile/shtrace/pkg/trace"
)

// Breakpoint is an armed break condition. Script and Line are both
// optional: an empty Script matches any script, a zero Line matches any
// line. A non-zero Line matches the first statement at or past it, so
// breaking inside a multi-line construct does not require naming the
// exact reported line.
type Breakpoint struct {
	Script string
	Line   int

	when string
	cond *vm.Program
}

// Parse decodes a SCRIPT:LINE spec. Either side may be empty. The bare
// spec ":" arms nothing and instead requests a pause at the first traced
// statement; Parse reports that case with paused=true and a nil
// breakpoint.
func Parse(spec string) (bp *Breakpoint, paused bool, err error) {
	i := strings.LastIndex(spec, ":")
	if i < 0 {
		return nil, false, fmt.Errorf("breakpoint %q: want SCRIPT:LINE", spec)
	}
	script, lineStr := spec[:i], spec[i+1:]
	if script == "" && lineStr == "" {
		return nil, true, nil
	}
	line := 0
	if lineStr != "" {
		line, err = strconv.Atoi(lineStr)
		if err != nil {
			return nil, false, fmt.Errorf("breakpoint %q: bad line: %w", spec, err)
		}
	}
	return &Breakpoint{Script: script, Line: line}, false, nil
}

// condEnv is the variable set visible to condition expressions.
func condEnv(f *trace.Frame) map[string]interface{} {
	return map[string]interface{}{
		"script":   f.Script,
		"line":     f.Line,
		"command":  f.Command,
		"depth":    f.Depth,
		"subshell": f.Subshell,
	}
}

// WithCondition compiles an expr-lang guard evaluated against the frame
// whenever the positional spec matches. Expressions see script, line,
// command, depth and subshell.
func (b *Breakpoint) WithCondition(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	program, err := expr.Compile(code, expr.Env(condEnv(&trace.Frame{})), expr.AsBool())
	if err != nil {
		return fmt.Errorf("compile condition %q: %w", code, err)
	}
	b.when = code
	b.cond = program
	return nil
}

// Matches reports whether the frame satisfies the breakpoint. A failing
// condition evaluation counts as no match and returns the error.
func (b *Breakpoint) Matches(f *trace.Frame) (bool, error) {
	if b.Script != "" && b.Script != f.Script {
		return false, nil
	}
	if b.Line != 0 && f.Line < b.Line {
		return false, nil
	}
	if b.cond == nil {
		return true, nil
	}
	out, err := expr.Run(b.cond, condEnv(f))
	if err != nil {
		return false, fmt.Errorf("eval condition %q: %w", b.when, err)
	}
	hit, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not return bool (got %T: %v)", b.when, out, out)
	}
	return hit, nil
}

// String renders the breakpoint back in SCRIPT:LINE form.
func (b *Breakpoint) String() string {
	s := b.Script + ":"
	if b.Line != 0 {
		s += strconv.Itoa(b.Line)
	}
	if b.when != "" {
		s += " when " + b.when
	}
	return s
}
