package protocol

import (
	"bufio"
	"strings"
	"testing"
	"testing/iotest"
)

// TestParseEvent verifies decoding of a well-formed debug-event line.
func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent("DBG 12 /tmp/demo.sh!!!echo hello!!!2!!!0\n")
	if err != nil {
		t.Fatalf("ParseEvent returned error: %v", err)
	}
	if ev.Line != 12 {
		t.Errorf("Line = %d, want 12", ev.Line)
	}
	if ev.Script != "/tmp/demo.sh" {
		t.Errorf("Script = %q, want /tmp/demo.sh", ev.Script)
	}
	if ev.Command != "echo hello" {
		t.Errorf("Command = %q, want %q", ev.Command, "echo hello")
	}
	if ev.Depth != 2 {
		t.Errorf("Depth = %d, want 2", ev.Depth)
	}
	if ev.Subshell != 0 {
		t.Errorf("Subshell = %d, want 0", ev.Subshell)
	}
}

// TestParseEventTrimsCommand verifies surrounding whitespace is stripped
// from the command text but interior whitespace is preserved.
func TestParseEventTrimsCommand(t *testing.T) {
	ev, err := ParseEvent("DBG 1 s.sh!!!  echo  a  !!!1!!!0")
	if err != nil {
		t.Fatalf("ParseEvent returned error: %v", err)
	}
	if ev.Command != "echo  a" {
		t.Errorf("Command = %q, want %q", ev.Command, "echo  a")
	}
}

// TestParseEventScriptWithSpaces verifies that only the first space splits
// line number from script path; the path may itself contain spaces.
func TestParseEventScriptWithSpaces(t *testing.T) {
	ev, err := ParseEvent("DBG 3 /tmp/my dir/run.sh!!!true!!!2!!!0")
	if err != nil {
		t.Fatalf("ParseEvent returned error: %v", err)
	}
	if ev.Script != "/tmp/my dir/run.sh" {
		t.Errorf("Script = %q, want %q", ev.Script, "/tmp/my dir/run.sh")
	}
}

// TestParseEventRejects verifies the fatal protocol-violation cases: wrong
// tag, missing fields, and non-numeric integers.
func TestParseEventRejects(t *testing.T) {
	bad := []string{
		"",
		"DBG",
		"XXX 1 s.sh!!!cmd!!!1!!!0",
		"DBG 1 s.sh!!!cmd!!!1",
		"DBG x s.sh!!!cmd!!!1!!!0",
		"DBG 1 s.sh!!!cmd!!!x!!!0",
		"DBG 1 s.sh!!!cmd!!!1!!!x",
		"DBG 1!!!cmd!!!1!!!0",
	}
	for _, line := range bad {
		if _, err := ParseEvent(line); err == nil {
			t.Errorf("ParseEvent(%q) = nil error, want protocol violation", line)
		}
	}
}

// TestParseEventMultilineCommand verifies a statement spanning physical
// lines keeps its embedded newlines through decoding.
func TestParseEventMultilineCommand(t *testing.T) {
	ev, err := ParseEvent("DBG 2 m.sh!!!msg=\"first\nsecond\"!!!1!!!0")
	if err != nil {
		t.Fatalf("ParseEvent returned error: %v", err)
	}
	if want := "msg=\"first\nsecond\""; ev.Command != want {
		t.Errorf("Command = %q, want %q", ev.Command, want)
	}
	if ev.Line != 2 || ev.Depth != 1 || ev.Subshell != 0 {
		t.Errorf("event = %+v", ev)
	}
}

// TestParseEventSeparatorInCommand verifies a command containing the
// separator text is reassembled from the interior fields; depth and
// subshell are always the last two.
func TestParseEventSeparatorInCommand(t *testing.T) {
	ev, err := ParseEvent("DBG 4 s.sh!!!echo '!!!'!!!3!!!0")
	if err != nil {
		t.Fatalf("ParseEvent returned error: %v", err)
	}
	if want := "echo '!!!'"; ev.Command != want {
		t.Errorf("Command = %q, want %q", ev.Command, want)
	}
	if ev.Depth != 3 || ev.Subshell != 0 {
		t.Errorf("event = %+v", ev)
	}
}

// TestScanEventsFramesMultilineCommand verifies the trace-stream framing
// keeps a statement with embedded newlines as one event instead of
// splitting it at the first line break.
func TestScanEventsFramesMultilineCommand(t *testing.T) {
	stream := "DBG 2 /t/m.sh!!!msg=\"first\nsecond\"!!!1!!!0\n" +
		"DBG 3 /t/m.sh!!!echo done!!!1!!!0\n"
	sc := bufio.NewScanner(strings.NewReader(stream))
	sc.Split(ScanEvents)

	var events []Event
	for sc.Scan() {
		ev, err := ParseEvent(sc.Text())
		if err != nil {
			t.Fatalf("ParseEvent(%q): %v", sc.Text(), err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if want := "msg=\"first\nsecond\""; events[0].Command != want {
		t.Errorf("first Command = %q, want %q", events[0].Command, want)
	}
	if events[0].Line != 2 || events[1].Command != "echo done" {
		t.Errorf("events = %+v", events)
	}
}

// TestScanEventsPartialDelivery verifies framing survives arbitrarily
// fragmented reads: no token is emitted until the closing fields arrive.
func TestScanEventsPartialDelivery(t *testing.T) {
	stream := "DBG 5 a.sh!!!printf 'x\ny'!!!2!!!1\n"
	sc := bufio.NewScanner(iotest.OneByteReader(strings.NewReader(stream)))
	sc.Split(ScanEvents)

	if !sc.Scan() {
		t.Fatalf("no token: %v", sc.Err())
	}
	ev, err := ParseEvent(sc.Text())
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.Command != "printf 'x\ny'" || ev.Depth != 2 || ev.Subshell != 1 {
		t.Errorf("event = %+v", ev)
	}
	if sc.Scan() {
		t.Errorf("unexpected extra token %q", sc.Text())
	}
}

// TestScanEventsFlushesAtEOF verifies a final event without a trailing
// newline is still delivered.
func TestScanEventsFlushesAtEOF(t *testing.T) {
	sc := bufio.NewScanner(strings.NewReader("DBG 1 s.sh!!!true!!!1!!!0"))
	sc.Split(ScanEvents)
	if !sc.Scan() {
		t.Fatalf("no token: %v", sc.Err())
	}
	if ev, err := ParseEvent(sc.Text()); err != nil || ev.Command != "true" {
		t.Errorf("event = %+v, err = %v", ev, err)
	}
}

// TestEventRoundTrip verifies Decode(Encode(fields)) reproduces the fields
// across representative combinations.
func TestEventRoundTrip(t *testing.T) {
	events := []Event{
		{Line: 1, Script: "a.sh", Command: "true", Depth: 1, Subshell: 0},
		{Line: 99, Script: "/p/q r/s.sh", Command: "echo hi | wc -l", Depth: 4, Subshell: 2},
		{Line: 7, Script: "lib.sh", Command: "x=$((x + 1))", Depth: 2, Subshell: 0},
	}
	for _, want := range events {
		data, err := EncodeEvent(want)
		if err != nil {
			t.Fatalf("EncodeEvent(%+v) returned error: %v", want, err)
		}
		got, err := ParseEvent(string(data))
		if err != nil {
			t.Fatalf("ParseEvent(%q) returned error: %v", data, err)
		}
		if got != want {
			t.Errorf("round trip = %+v, want %+v", got, want)
		}
	}
}

// TestEncodeEventRejectsSeparator verifies a command containing the field
// separator cannot be encoded.
func TestEncodeEventRejectsSeparator(t *testing.T) {
	_, err := EncodeEvent(Event{Line: 1, Script: "s", Command: "echo !!!", Depth: 1})
	if err == nil {
		t.Error("EncodeEvent accepted a command containing the field separator")
	}
}

// TestStepRoundTrip verifies Encode(Decode(line)) reproduces the original
// line for all four step-command kinds.
func TestStepRoundTrip(t *testing.T) {
	lines := []string{"0\n", "1\n", "2\n", "EVAL echo $x\n"}
	for _, want := range lines {
		step, err := ParseStep(want)
		if err != nil {
			t.Fatalf("ParseStep(%q) returned error: %v", want, err)
		}
		if got := string(step.Encode()); got != want {
			t.Errorf("Encode(ParseStep(%q)) = %q", want, got)
		}
	}
}

// TestStepEncode verifies the exact wire form of each step command.
func TestStepEncode(t *testing.T) {
	cases := []struct {
		step Step
		want string
	}{
		{Advance, "0\n"},
		{Skip, "1\n"},
		{Return, "2\n"},
		{Eval("x=1; echo $x"), "EVAL x=1; echo $x\n"},
	}
	for _, tc := range cases {
		if got := string(tc.step.Encode()); got != tc.want {
			t.Errorf("%v.Encode() = %q, want %q", tc.step.Kind, got, tc.want)
		}
	}
	for _, line := range []string{"3", "eval x", "EVAL"} {
		if _, err := ParseStep(line); err == nil {
			t.Errorf("ParseStep(%q) = nil error, want failure", line)
		}
	}
}

// TestStepKindString verifies the hint names used in logs and prompts.
func TestStepKindString(t *testing.T) {
	names := map[StepKind]string{
		StepAdvance: "advance",
		StepSkip:    "skip",
		StepReturn:  "return",
		StepEval:    "eval",
	}
	for kind, want := range names {
		if got := kind.String(); got != want {
			t.Errorf("StepKind(%d).String() = %q, want %q", int(kind), got, want)
		}
	}
	if !strings.HasPrefix(StepKind(42).String(), "step(") {
		t.Errorf("unknown kind should render as step(n), got %q", StepKind(42).String())
	}
}
