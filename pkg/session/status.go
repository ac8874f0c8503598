package session

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// ExitStatus describes how the child shell ended.
type ExitStatus struct {
	// Code is the value the debugger should itself exit with: the child's
	// exit code, or 128 plus the signal number for a signalled child.
	Code     int
	Signal   syscall.Signal
	Signaled bool
}

// exitStatus derives an ExitStatus from the error returned by Wait.
func exitStatus(waitErr error) (ExitStatus, error) {
	if waitErr == nil {
		return ExitStatus{}, nil
	}
	// WaitDelay tripping means the child itself succeeded but something
	// it spawned still holds its stdio open.
	if errors.Is(waitErr, exec.ErrWaitDelay) {
		return ExitStatus{}, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(waitErr, &exitErr) {
		return ExitStatus{Code: 1}, fmt.Errorf("wait: %w", waitErr)
	}
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	if ok && ws.Signaled() {
		sig := ws.Signal()
		return ExitStatus{Code: 128 + int(sig), Signal: sig, Signaled: true}, nil
	}
	return ExitStatus{Code: exitErr.ExitCode()}, nil
}

// Describe renders the status the way the console reports it, e.g.
// "Finished (returned 0)" or "Terminated (SIGTERM)".
func (s ExitStatus) Describe() string {
	if s.Signaled {
		return fmt.Sprintf("Terminated (%s)", unix.SignalName(s.Signal))
	}
	return fmt.Sprintf("Finished (returned %d)", s.Code)
}

// SignalName returns the terminating signal's name, or "" for a normal
// exit.
func (s ExitStatus) SignalName() string {
	if !s.Signaled {
		return ""
	}
	return unix.SignalName(s.Signal)
}
