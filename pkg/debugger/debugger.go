// Package debugger implements the line-oriented interactive debugger, an
// alternative to the full-screen UI for dumb terminals and remote shells.
package debugger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/ormasoftchile/shtrace/pkg/session"
	"github.com/ormasoftchile/shtrace/pkg/source"
	"github.com/ormasoftchile/shtrace/pkg/trace"
)

// Debugger drives a session from a readline prompt. Session events are
// printed as they arrive; step commands act on the currently held
// statement.
type Debugger struct {
	sess    *session.Session
	script  string
	scripts *source.Cache
	out     io.Writer
	rl      *readline.Instance

	mu        sync.Mutex
	frames    []trace.Frame
	resolvers []*source.Resolver
	waiting   bool
	exited    bool
}

// New creates a debugger for a prepared session. script is the target's
// path, used for the banner only.
func New(sess *session.Session, script string) *Debugger {
	return &Debugger{
		sess:    sess,
		script:  script,
		scripts: source.NewCache(),
		out:     os.Stdout,
	}
}

type runResult struct {
	status session.ExitStatus
	err    error
}

// Run starts the session and serves the REPL until the child exits or
// the operator quits. It returns the child's exit status.
func (d *Debugger) Run(ctx context.Context) (session.ExitStatus, error) {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("next"),
		readline.PcItem("skip"),
		readline.PcItem("return"),
		readline.PcItem("continue"),
		readline.PcItem("pause"),
		readline.PcItem("eval"),
		readline.PcItem("where"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          d.prompt(),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return session.ExitStatus{}, fmt.Errorf("init readline: %w", err)
	}
	d.rl = rl
	d.out = rl.Stdout()
	defer rl.Close()

	res := make(chan runResult, 1)
	go func() {
		status, err := d.sess.Run(ctx)
		res <- runResult{status, err}
	}()

	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		d.consumeEvents()
	}()

	fmt.Fprintf(d.out, "shtrace — stepping %s\n", d.script)
	fmt.Fprintf(d.out, "Type 'help' for commands, 'next' to run the held statement.\n\n")

	for {
		rl.SetPrompt(d.prompt())
		line, err := rl.Readline()
		if err != nil {
			// Interrupt, EOF, or the prompt closed after the child exited.
			break
		}
		if !d.dispatch(strings.TrimSpace(line)) {
			break
		}
	}

	d.sess.Quit()
	<-consumed
	r := <-res
	return r.status, r.err
}

// consumeEvents prints session events above the prompt until the feed
// closes.
func (d *Debugger) consumeEvents() {
	for ev := range d.sess.Events() {
		switch ev := ev.(type) {
		case session.OutputEvent:
			io.WriteString(d.out, ev.Text)
		case session.DiagEvent:
			fmt.Fprintf(d.out, "! %s\n", ev.Text)
		case session.TraceEvent:
			d.onTrace(ev)
		case session.ExitedEvent:
			fmt.Fprintf(d.out, "%s\n", ev.Status.Describe())
			d.mu.Lock()
			d.exited = true
			d.waiting = false
			d.mu.Unlock()
			if d.rl != nil {
				// Unblocks the Readline call so Run can return.
				d.rl.Close()
			}
		}
	}
}

// onTrace records the new stack shape and reports the statement: held
// statements get their resolved source span, auto-advanced ones a
// one-line progress note.
func (d *Debugger) onTrace(ev session.TraceEvent) {
	if len(ev.Frames) == 0 {
		return
	}
	top := ev.Frames[len(ev.Frames)-1]
	d.mu.Lock()
	d.syncResolvers(ev.Frames)
	d.frames = ev.Frames
	d.waiting = ev.Waiting
	resolver := d.resolvers[len(ev.Frames)-1]
	script, _ := d.scripts.Get(top.Script)
	d.mu.Unlock()

	if ev.Waiting {
		d.printHeld(top, script, resolver)
	} else {
		fmt.Fprintf(d.out, "-- %s:%d  %s\n", filepath.Base(top.Script), top.Line, top.Command)
	}
	if d.rl != nil {
		d.rl.SetPrompt(d.prompt())
		d.rl.Refresh()
	}
}

// syncResolvers keeps one resolver per live frame so fragment-match
// state follows each frame's lifetime. Caller holds d.mu.
func (d *Debugger) syncResolvers(frames []trace.Frame) {
	if len(frames) < len(d.resolvers) {
		d.resolvers = d.resolvers[:len(frames)]
	}
	for len(d.resolvers) < len(frames) {
		f := frames[len(d.resolvers)]
		script, _ := d.scripts.Get(f.Script)
		d.resolvers = append(d.resolvers, source.NewResolver(script))
	}
}

// prompt reflects the session state: the held location, running, or
// done.
func (d *Debugger) prompt() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.exited {
		return "shtrace[done]> "
	}
	if !d.waiting || len(d.frames) == 0 {
		return "shtrace[running]> "
	}
	top := d.frames[len(d.frames)-1]
	return fmt.Sprintf("shtrace[%s:%d]> ", filepath.Base(top.Script), top.Line)
}
