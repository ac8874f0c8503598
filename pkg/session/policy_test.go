package session

import (
	"testing"

	"github.com/ormasoftchile/shtrace/pkg/breakpoint"
	"github.com/ormasoftchile/shtrace/pkg/trace"
)

// TestPolicyModes verifies pause and continue switching.
func TestPolicyModes(t *testing.T) {
	p := NewPolicy(0, false, nil)
	if p.Paused() {
		t.Error("new policy should be continuing")
	}
	p.Pause()
	if !p.Paused() {
		t.Error("Pause did not hold")
	}
	p.Continue()
	if p.Paused() {
		t.Error("Continue did not resume")
	}

	if !NewPolicy(0, true, nil).Paused() {
		t.Error("startPaused policy should be paused")
	}
}

// TestPolicyBreakpointOneShot verifies that a line breakpoint holds the
// first frame at or past its line, switches the policy to paused, and
// never fires again.
func TestPolicyBreakpointOneShot(t *testing.T) {
	bp, _, err := breakpoint.Parse(":5")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p := NewPolicy(0, false, bp)

	if hit, _ := p.CheckBreak(&trace.Frame{Script: "a.sh", Line: 3}); hit {
		t.Error("line 3 should not hit :5")
	}
	if p.Paused() {
		t.Error("miss must not pause")
	}

	hit, err := p.CheckBreak(&trace.Frame{Script: "a.sh", Line: 6})
	if err != nil || !hit {
		t.Fatalf("line 6 should hit :5, got %v, %v", hit, err)
	}
	if !p.Paused() {
		t.Error("hit must pause")
	}
	if p.Breakpoint() != nil {
		t.Error("hit must disarm the breakpoint")
	}

	p.Continue()
	if hit, _ := p.CheckBreak(&trace.Frame{Script: "a.sh", Line: 7}); hit {
		t.Error("disarmed breakpoint fired again")
	}
}
