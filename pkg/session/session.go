// Package session runs a target script under the step wrapper and owns
// the debug dialogue with it: decoding trace events, answering them from
// the stepping policy or operator commands, pumping child output, and
// reporting how the child ended.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/ormasoftchile/shtrace/pkg/breakpoint"
	"github.com/ormasoftchile/shtrace/pkg/protocol"
	"github.com/ormasoftchile/shtrace/pkg/trace"
)

// drainGrace bounds the post-exit drain. Output the child wrote before
// exiting is still collected, but pipes a background job inherited
// cannot keep the session alive once the child is gone.
const drainGrace = 250 * time.Millisecond

// waitDelay bounds Wait itself the same way when the child's stdio is
// copied by the runtime rather than pumped here (headless runs writing
// to plain buffers).
const waitDelay = 500 * time.Millisecond

// Config describes a debug session.
type Config struct {
	// Script is the target script path; Args become its positional
	// parameters.
	Script string
	Args   []string

	// Sleep paces automatic advancing in continuing mode.
	Sleep time.Duration

	// Paused holds the first traced statement for the operator.
	Paused bool

	// Break arms a one-shot breakpoint.
	Break *breakpoint.Breakpoint

	// Headless disables the event feed and pausing entirely: the child
	// inherits the session's stdio and every statement is advanced.
	Headless bool

	// Wrapper overrides the embedded step wrapper script.
	Wrapper string

	// Record, when set, appends a JSONL transcript of the session.
	Record string

	// Stdin, Stdout and Stderr are the child's stdio in headless mode,
	// defaulting to the debugger's own.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Logger zerolog.Logger
}

// Session is a single run of a script under the debugger. Create it with
// New, drive it with Run, and talk to it from other goroutines through
// the command methods and the Events channel. All session state lives on
// the Run goroutine; commands and events are its only surface.
type Session struct {
	cfg    Config
	log    zerolog.Logger
	policy *Policy

	cmd   *exec.Cmd
	stdin io.WriteCloser
	stepW *os.File

	stack    *trace.Stack
	recorder *Recorder

	commands chan command
	events   chan Event
	done     chan struct{}

	awaiting bool // an unanswered trace event is pending
	pending  *trace.Frame
	delay    *time.Timer
	delayCh  <-chan time.Time
	quitting bool
	runErr   error
}

// New validates the configuration and prepares a session.
func New(cfg Config) (*Session, error) {
	if _, err := os.Stat(cfg.Script); err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	if cfg.Headless && (cfg.Paused || cfg.Break != nil) {
		return nil, fmt.Errorf("a headless run cannot pause: no operator to resume it")
	}
	return &Session{
		cfg:      cfg,
		log:      cfg.Logger,
		policy:   NewPolicy(cfg.Sleep, cfg.Paused, cfg.Break),
		stack:    trace.NewStack(),
		commands: make(chan command),
		events:   make(chan Event, 64),
		done:     make(chan struct{}),
	}, nil
}

// Events is the session notification feed. It closes after ExitedEvent.
func (s *Session) Events() <-chan Event { return s.events }

func (s *Session) send(c command) {
	select {
	case s.commands <- c:
	case <-s.done:
	}
}

// Step answers the pending trace event. Ignored when nothing is pending.
// An eval step leaves the event pending; the statement still needs a
// verdict afterwards.
func (s *Session) Step(st protocol.Step) { s.send(command{kind: cmdStep, step: st}) }

// Pause holds the next statement, or one already in its pacing delay,
// for the operator.
func (s *Session) Pause() { s.send(command{kind: cmdPause}) }

// Continue resumes automatic advancing, answering the held statement if
// there is one.
func (s *Session) Continue() { s.send(command{kind: cmdContinue}) }

// Quit terminates the child; the session ends once it has been reaped.
func (s *Session) Quit() { s.send(command{kind: cmdQuit}) }

// WriteInput forwards raw bytes to the child's stdin.
func (s *Session) WriteInput(p []byte) {
	b := make([]byte, len(p))
	copy(b, p)
	s.send(command{kind: cmdInput, input: b})
}

// Run spawns the child and serves the session until it exits, returning
// the child's exit status. The error reports session failures such as a
// corrupt event stream, never script failures; those are the status.
func (s *Session) Run(ctx context.Context) (ExitStatus, error) {
	status, err := s.run(ctx)
	close(s.done)
	close(s.events)
	return status, err
}

func (s *Session) run(ctx context.Context) (ExitStatus, error) {
	wrapper, err := prepareWrapper(s.cfg.Wrapper)
	if err != nil {
		return ExitStatus{Code: 1}, err
	}
	defer os.Remove(wrapper)

	if s.cfg.Record != "" {
		rec, err := NewRecorder(s.cfg.Record)
		if err != nil {
			return ExitStatus{Code: 1}, err
		}
		s.recorder = rec
		defer s.recorder.Close()
	}

	// Pipe pairs accumulate here so any failed setup step releases every
	// end opened so far.
	var opened []*os.File
	closeOpened := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	pipe := func(name string) (*os.File, *os.File, error) {
		r, w, err := os.Pipe()
		if err != nil {
			closeOpened()
			return nil, nil, fmt.Errorf("%s pipe: %w", name, err)
		}
		opened = append(opened, r, w)
		return r, w, nil
	}

	dbgR, dbgW, err := pipe("debug")
	if err != nil {
		return ExitStatus{Code: 1}, err
	}
	stpR, stpW, err := pipe("step")
	if err != nil {
		return ExitStatus{Code: 1}, err
	}
	s.stepW = stpW

	// The wrapper sources the target, so the script keeps its own $0 and
	// positional parameters.
	argv := append([]string{"-c", "source " + wrapper, s.cfg.Script}, s.cfg.Args...)
	cmd := exec.Command("bash", argv...)
	cmd.ExtraFiles = []*os.File{dbgW, stpR}
	cmd.WaitDelay = waitDelay
	s.cmd = cmd

	var outR, errR *os.File
	childEnds := []*os.File{dbgW, stpR}
	if s.cfg.Headless {
		cmd.Stdin, cmd.Stdout, cmd.Stderr = s.cfg.Stdin, s.cfg.Stdout, s.cfg.Stderr
		if cmd.Stdin == nil {
			cmd.Stdin = os.Stdin
		}
		if cmd.Stdout == nil {
			cmd.Stdout = os.Stdout
		}
		if cmd.Stderr == nil {
			cmd.Stderr = os.Stderr
		}
	} else {
		// Explicit pipes rather than cmd.StdinPipe and friends: Wait
		// closes those the moment the child exits, racing the pumps out
		// of its final output.
		stdinR, stdinW, err := pipe("stdin")
		if err != nil {
			return ExitStatus{Code: 1}, err
		}
		var outW, errW *os.File
		outR, outW, err = pipe("stdout")
		if err != nil {
			return ExitStatus{Code: 1}, err
		}
		errR, errW, err = pipe("stderr")
		if err != nil {
			return ExitStatus{Code: 1}, err
		}
		cmd.Stdin, cmd.Stdout, cmd.Stderr = stdinR, outW, errW
		s.stdin = stdinW
		childEnds = append(childEnds, stdinR, outW, errW)
	}

	s.log.Debug().Str("script", s.cfg.Script).Strs("args", s.cfg.Args).
		Str("wrapper", wrapper).Msg("spawning child")
	if err := cmd.Start(); err != nil {
		closeOpened()
		return ExitStatus{Code: 1}, fmt.Errorf("start bash: %w", err)
	}
	// The child owns these ends now.
	for _, f := range childEnds {
		f.Close()
	}
	defer stpW.Close()
	if s.stdin != nil {
		defer s.stdin.Close()
	}

	traceCh := make(chan string, 8)
	go func() {
		defer close(traceCh)
		sc := bufio.NewScanner(dbgR)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		sc.Split(protocol.ScanEvents)
		for sc.Scan() {
			traceCh <- sc.Text()
		}
		if err := sc.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
			s.log.Error().Err(err).Msg("debug pipe read")
		}
	}()

	var outCh, errCh chan string
	if !s.cfg.Headless {
		outCh = pumpStream(outR)
		errCh = pumpStream(errR)
	}

	// Reaping runs concurrently so the loop ends at the child's exit
	// even while a background job keeps the pipes open. Stream EOFs only
	// deregister their channel.
	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var waitErr error
	ctxDone := ctx.Done()
loop:
	for {
		select {
		case waitErr = <-waitCh:
			break loop
		case line, ok := <-traceCh:
			if !ok {
				traceCh = nil
				continue
			}
			if err := s.onTraceLine(line); err != nil {
				s.fail(err)
			}
		case text, ok := <-outCh:
			if !ok {
				outCh = nil
				continue
			}
			s.onOutput(text, false)
		case text, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			s.onOutput(text, true)
		case c := <-s.commands:
			s.onCommand(c)
		case <-s.delayCh:
			s.delay = nil
			s.delayCh = nil
			if err := s.finishAdvance(); err != nil {
				s.fail(err)
			}
		case <-ctxDone:
			ctxDone = nil
			s.terminate("context cancelled")
		}
	}

	s.cancelDelay()
	s.drainStreams(traceCh, outCh, errCh)

	// Unblock any pump a leftover pipe holder keeps waiting, then reap
	// the pump goroutines.
	dbgR.Close()
	if outR != nil {
		outR.Close()
	}
	if errR != nil {
		errR.Close()
	}
	for traceCh != nil || outCh != nil || errCh != nil {
		select {
		case _, ok := <-traceCh:
			if !ok {
				traceCh = nil
			}
		case _, ok := <-outCh:
			if !ok {
				outCh = nil
			}
		case _, ok := <-errCh:
			if !ok {
				errCh = nil
			}
		}
	}

	status, statusErr := exitStatus(waitErr)
	if statusErr != nil && s.runErr == nil {
		s.runErr = statusErr
	}
	s.log.Debug().Int("code", status.Code).Bool("signaled", status.Signaled).
		Msg("child exited")
	if err := s.recorder.Exit(status); err != nil {
		s.log.Error().Err(err).Msg("record exit")
	}
	s.notify(ExitedEvent{Status: status})
	return status, s.runErr
}

// drainStreams collects what the child managed to write before exiting.
// EOF on every stream ends the drain early; otherwise the grace deadline
// does, so pipes inherited by a still-running background job cannot keep
// the session alive. Trace lines arriving after the exit have no child
// left to answer and are dropped.
func (s *Session) drainStreams(traceCh, outCh, errCh chan string) {
	deadline := time.NewTimer(drainGrace)
	defer deadline.Stop()
	for traceCh != nil || outCh != nil || errCh != nil {
		select {
		case line, ok := <-traceCh:
			if !ok {
				traceCh = nil
				continue
			}
			s.log.Debug().Str("line", line).Msg("trace event after exit")
		case text, ok := <-outCh:
			if !ok {
				outCh = nil
				continue
			}
			s.onOutput(text, false)
		case text, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			s.onOutput(text, true)
		case <-deadline.C:
			return
		}
	}
}

// pumpStream turns a child output pipe into a channel of raw chunks. The
// channel closes at EOF.
func pumpStream(r io.Reader) chan string {
	ch := make(chan string, 8)
	go func() {
		defer close(ch)
		buf := make([]byte, 4096)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				ch <- string(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

// onTraceLine decodes one debug event and decides its fate: wrapper
// statements advance silently, paused sessions hold the statement, and
// continuing sessions advance it after the pacing delay.
func (s *Session) onTraceLine(line string) error {
	ev, err := protocol.ParseEvent(line)
	if err != nil {
		return err
	}
	s.log.Debug().Int("line", ev.Line).Str("script", ev.Script).
		Int("depth", ev.Depth).Int("subshell", ev.Subshell).
		Str("command", ev.Command).Msg("trace event")
	if err := s.recorder.Event(ev); err != nil {
		s.log.Error().Err(err).Msg("record event")
	}
	frame, err := s.stack.Apply(ev)
	if err != nil {
		return err
	}
	if s.stack.IsWrapper(frame) {
		// The wrapper's own statements step freely and stay invisible.
		return s.respond(protocol.Advance)
	}
	s.awaiting = true
	s.pending = frame
	if s.policy.Paused() {
		s.notifyTrace(true)
		return nil
	}
	s.notifyTrace(false)
	if d := s.policy.Delay(); d > 0 {
		s.delay = time.NewTimer(d)
		s.delayCh = s.delay.C
		return nil
	}
	return s.finishAdvance()
}

// finishAdvance completes an automatic advance: the armed breakpoint
// gets one shot at holding the statement, otherwise the child runs it.
func (s *Session) finishAdvance() error {
	hit, err := s.policy.CheckBreak(s.pending)
	if err != nil {
		s.log.Error().Err(err).Msg("breakpoint condition")
		s.notify(DiagEvent{Text: err.Error()})
	}
	if hit {
		s.log.Debug().Str("script", s.pending.Script).Int("line", s.pending.Line).
			Msg("breakpoint hit")
		s.notifyTrace(true)
		return nil
	}
	s.awaiting = false
	return s.respond(protocol.Advance)
}

func (s *Session) onCommand(c command) {
	switch c.kind {
	case cmdStep:
		if !s.awaiting {
			return
		}
		if s.cancelDelay() {
			// The operator took over mid-delay; stepping means stopping.
			s.policy.Pause()
		}
		if err := s.respond(c.step); err != nil {
			s.fail(err)
			return
		}
		if c.step.Kind != protocol.StepEval {
			s.awaiting = false
		}
	case cmdPause:
		s.policy.Pause()
		if s.cancelDelay() {
			s.notifyTrace(true)
		}
	case cmdContinue:
		s.policy.Continue()
		if s.awaiting && s.delayCh == nil {
			s.awaiting = false
			if err := s.respond(protocol.Advance); err != nil {
				s.fail(err)
			}
		}
	case cmdQuit:
		s.terminate("operator quit")
	case cmdInput:
		if s.stdin == nil {
			return
		}
		if _, err := s.stdin.Write(c.input); err != nil {
			s.log.Error().Err(err).Msg("stdin write")
			s.notify(DiagEvent{Text: "stdin: " + err.Error()})
		}
	}
}

func (s *Session) onOutput(text string, stderr bool) {
	stream := "stdout"
	if stderr {
		stream = "stderr"
	}
	if err := s.recorder.Output(stream, text); err != nil {
		s.log.Error().Err(err).Msg("record output")
	}
	s.notify(OutputEvent{Text: text, Stderr: stderr})
}

// respond sends a step answer down the step pipe.
func (s *Session) respond(st protocol.Step) error {
	s.log.Debug().Str("step", st.Kind.String()).Msg("answering")
	if err := s.recorder.Response(st); err != nil {
		s.log.Error().Err(err).Msg("record response")
	}
	if _, err := s.stepW.Write(st.Encode()); err != nil {
		return fmt.Errorf("step pipe: %w", err)
	}
	return nil
}

// cancelDelay stops a pending pacing delay, reporting whether one was
// pending.
func (s *Session) cancelDelay() bool {
	if s.delay == nil {
		return false
	}
	s.delay.Stop()
	s.delay = nil
	s.delayCh = nil
	return true
}

// terminate asks the child to exit. The session itself ends once the
// child's pipes drain and it has been reaped.
func (s *Session) terminate(reason string) {
	if s.quitting || s.cmd == nil || s.cmd.Process == nil {
		return
	}
	s.quitting = true
	s.cancelDelay()
	s.log.Debug().Str("reason", reason).Msg("terminating child")
	if err := s.cmd.Process.Signal(unix.SIGTERM); err != nil {
		s.log.Error().Err(err).Msg("signal child")
	}
}

// fail records a fatal session error and tears the child down. The loop
// still drains so the exit status stays accurate.
func (s *Session) fail(err error) {
	s.log.Error().Err(err).Msg("session error")
	if s.runErr == nil {
		s.runErr = err
	}
	s.notify(DiagEvent{Text: err.Error()})
	s.terminate("session error")
}

func (s *Session) notify(ev Event) {
	if s.cfg.Headless {
		return
	}
	s.events <- ev
}

func (s *Session) notifyTrace(waiting bool) {
	frames := s.stack.Snapshot()
	if len(frames) > 0 {
		frames = frames[1:]
	}
	s.notify(TraceEvent{Frames: frames, Waiting: waiting})
}
