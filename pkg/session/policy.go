package session

import (
	"time"

	"github.com/ormasoftchile/shtrace/pkg/breakpoint"
	"github.com/ormasoftchile/shtrace/pkg/trace"
)

// Policy decides what happens to trace events the operator has not
// answered. A paused policy holds every event for an explicit step
// decision; a continuing policy advances after an optional delay until
// the armed breakpoint fires. Mode switches take effect from the next
// undecided event.
type Policy struct {
	paused bool
	sleep  time.Duration
	bp     *breakpoint.Breakpoint
}

// NewPolicy returns a policy that starts paused or continuing, advances
// with the given delay between statements, and optionally arms bp.
func NewPolicy(sleep time.Duration, startPaused bool, bp *breakpoint.Breakpoint) *Policy {
	return &Policy{paused: startPaused, sleep: sleep, bp: bp}
}

// Paused reports whether events are being held for the operator.
func (p *Policy) Paused() bool { return p.paused }

// Pause holds future events for the operator.
func (p *Policy) Pause() { p.paused = true }

// Continue resumes automatic advancing.
func (p *Policy) Continue() { p.paused = false }

// Delay is the pacing delay applied before each automatic advance.
func (p *Policy) Delay() time.Duration { return p.sleep }

// Breakpoint returns the armed breakpoint, nil once it has fired.
func (p *Policy) Breakpoint() *breakpoint.Breakpoint { return p.bp }

// CheckBreak tests the frame against the armed breakpoint. On a hit the
// breakpoint is disarmed and the policy switches to paused, so a
// breakpoint stops the run exactly once. A condition evaluation error is
// returned and counts as no hit.
func (p *Policy) CheckBreak(f *trace.Frame) (bool, error) {
	if p.bp == nil {
		return false, nil
	}
	hit, err := p.bp.Matches(f)
	if err != nil || !hit {
		return false, err
	}
	p.bp = nil
	p.paused = true
	return true, nil
}
