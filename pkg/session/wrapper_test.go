package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestPrepareWrapperBindsPlaceholders verifies that the embedded wrapper
// is written out with the passed file numbers in place of the
// placeholders.
func TestPrepareWrapperBindsPlaceholders(t *testing.T) {
	path, err := prepareWrapper("")
	if err != nil {
		t.Fatalf("prepareWrapper: %v", err)
	}
	defer os.Remove(path)

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wrapper: %v", err)
	}
	text := string(b)
	if strings.Contains(text, "__DBG_WR__") || strings.Contains(text, "__STP_RD__") {
		t.Error("placeholders survived substitution")
	}
	if !strings.Contains(text, ">&3") {
		t.Error("debug stream not bound to fd 3")
	}
	if !strings.Contains(text, "<&4") {
		t.Error("step stream not bound to fd 4")
	}
	if !strings.Contains(text, `source "$0" "$@"`) {
		t.Error("wrapper does not source the target script")
	}
}

// TestPrepareWrapperOverride verifies that an override file replaces the
// embedded wrapper while keeping the placeholder contract.
func TestPrepareWrapperOverride(t *testing.T) {
	custom := filepath.Join(t.TempDir(), "mine.sh")
	if err := os.WriteFile(custom, []byte("echo __DBG_WR__ __STP_RD__\n"), 0644); err != nil {
		t.Fatal(err)
	}
	path, err := prepareWrapper(custom)
	if err != nil {
		t.Fatalf("prepareWrapper: %v", err)
	}
	defer os.Remove(path)

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(b); got != "echo 3 4\n" {
		t.Errorf("wrapper = %q, want %q", got, "echo 3 4\n")
	}
}

// TestPrepareWrapperMissingOverride verifies the error for an absent
// override file.
func TestPrepareWrapperMissingOverride(t *testing.T) {
	if _, err := prepareWrapper(filepath.Join(t.TempDir(), "nope.sh")); err == nil {
		t.Error("want error for missing override")
	}
}
