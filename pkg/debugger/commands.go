package debugger

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ormasoftchile/shtrace/pkg/protocol"
	"github.com/ormasoftchile/shtrace/pkg/source"
	"github.com/ormasoftchile/shtrace/pkg/trace"
)

// dispatch runs one command line. It returns false when the REPL should
// stop.
func (d *Debugger) dispatch(line string) bool {
	if line == "" {
		return true
	}
	fields := strings.Fields(line)
	head := fields[0]

	switch head {
	case "n", "next":
		d.handleStep(protocol.Advance)
	case "s", "skip":
		d.handleStep(protocol.Skip)
	case "r", "return":
		d.handleStep(protocol.Return)
	case "c", "continue":
		d.handleContinue()
	case "p", "pause":
		d.handlePause()
	case "e", "eval":
		d.handleEval(strings.TrimSpace(strings.TrimPrefix(line, head)))
	case "w", "where":
		d.handleWhere()
	case "h", "help", "?":
		d.handleHelp()
	case "q", "quit", "exit":
		return false
	default:
		fmt.Fprintf(d.out, "Unknown command %q; type 'help'.\n", head)
	}
	return true
}

// handleStep answers the held statement. An eval answer keeps it held.
func (d *Debugger) handleStep(st protocol.Step) {
	d.mu.Lock()
	if d.exited {
		d.mu.Unlock()
		fmt.Fprintln(d.out, "The script has finished.")
		return
	}
	if !d.waiting {
		d.mu.Unlock()
		fmt.Fprintln(d.out, "Nothing is held; the script is running (try 'pause').")
		return
	}
	if st.Kind != protocol.StepEval {
		d.waiting = false
	}
	d.mu.Unlock()

	d.sess.Step(st)
}

// handleContinue resumes free running, answering the held statement if
// one is pending.
func (d *Debugger) handleContinue() {
	d.mu.Lock()
	if d.exited {
		d.mu.Unlock()
		fmt.Fprintln(d.out, "The script has finished.")
		return
	}
	d.waiting = false
	d.mu.Unlock()

	d.sess.Continue()
}

func (d *Debugger) handlePause() {
	d.mu.Lock()
	exited, waiting := d.exited, d.waiting
	d.mu.Unlock()

	if exited {
		fmt.Fprintln(d.out, "The script has finished.")
		return
	}
	if waiting {
		fmt.Fprintln(d.out, "Already holding a statement.")
		return
	}
	d.sess.Pause()
}

func (d *Debugger) handleEval(expr string) {
	if expr == "" {
		fmt.Fprintln(d.out, "Usage: eval EXPRESSION")
		return
	}
	d.handleStep(protocol.Eval(expr))
}

// handleWhere prints the call stack bottom to top, marking the executing
// frame.
func (d *Debugger) handleWhere() {
	d.mu.Lock()
	frames := make([]trace.Frame, len(d.frames))
	copy(frames, d.frames)
	d.mu.Unlock()

	if len(frames) == 0 {
		fmt.Fprintln(d.out, "No stack yet.")
		return
	}
	for i, f := range frames {
		marker := "  "
		if i == len(frames)-1 {
			marker = "* "
		}
		fmt.Fprintf(d.out, "%s#%d  %s:%d  %s\n", marker, i, f.Script, f.Line, f.Command)
	}
}

// handleHelp displays available commands.
func (d *Debugger) handleHelp() {
	fmt.Fprintln(d.out, "Available commands:")
	fmt.Fprintln(d.out, "  next (n)        Run the held statement")
	fmt.Fprintln(d.out, "  skip (s)        Skip the held statement without running it")
	fmt.Fprintln(d.out, "  return (r)      Return from the current function or sourced script")
	fmt.Fprintln(d.out, "  continue (c)    Keep running until a breakpoint or pause")
	fmt.Fprintln(d.out, "  pause (p)       Hold the next statement")
	fmt.Fprintln(d.out, "  eval EXPR (e)   Run EXPR in the script without advancing")
	fmt.Fprintln(d.out, "  where (w)       Show the call stack")
	fmt.Fprintln(d.out, "  help (?)        Show this help")
	fmt.Fprintln(d.out, "  quit (q)        Terminate the script and exit")
}

// printHeld renders the held statement with source context: the resolved
// span, a caret under the exact fragment when one was located, or the raw
// command when the source is unavailable or the position ambiguous.
func (d *Debugger) printHeld(f trace.Frame, script *source.Script, r *source.Resolver) {
	span := r.Resolve(f.Line, f.Command, f.Subshell)
	if script == nil || script.Line(span.First) == "" {
		fmt.Fprintf(d.out, "=> %s:%d  %s\n", filepath.Base(f.Script), f.Line, f.Command)
		return
	}
	if span.ShowCommand {
		fmt.Fprintf(d.out, "   (%s)\n", f.Command)
	}
	for n := span.First; n <= span.Last; n++ {
		fmt.Fprintf(d.out, "%4d  %s\n", n, script.Line(n))
		if span.Pointed && n == span.Line {
			width := span.Len
			if width < 1 {
				width = 1
			}
			fmt.Fprintf(d.out, "      %s%s\n",
				strings.Repeat(" ", span.Col), strings.Repeat("^", width))
		}
	}
}
