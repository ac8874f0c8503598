package session

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Passed file numbers in the child. ExtraFiles land after stderr, so the
// first is always 3 and the second 4.
const (
	dbgFD = 3
	stpFD = 4
)

//go:embed debug.sh
var wrapperScript string

// prepareWrapper writes the step wrapper to a temporary file with the
// __DBG_WR__ and __STP_RD__ placeholders bound to the passed file
// numbers, and returns its path. An override path replaces the embedded
// wrapper, keeping the same placeholder contract. The caller removes the
// file when the session ends.
func prepareWrapper(override string) (string, error) {
	text := wrapperScript
	if override != "" {
		b, err := os.ReadFile(override)
		if err != nil {
			return "", fmt.Errorf("read wrapper: %w", err)
		}
		text = string(b)
	}
	text = strings.ReplaceAll(text, "__DBG_WR__", strconv.Itoa(dbgFD))
	text = strings.ReplaceAll(text, "__STP_RD__", strconv.Itoa(stpFD))

	f, err := os.CreateTemp("", "shtrace-wrapper-*.sh")
	if err != nil {
		return "", fmt.Errorf("create wrapper: %w", err)
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write wrapper: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close wrapper: %w", err)
	}
	return f.Name(), nil
}
