// Package source loads traced script files and resolves reported commands
// back to exact source ranges for highlighting.
package source

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
)

// tabWidth is the tab-stop width applied when loading source text. Columns
// reported by the resolver refer to the expanded lines.
const tabWidth = 4

// Script is one loaded source file, split into tab-expanded lines.
type Script struct {
	Path  string
	Lines []string
}

// Load reads and prepares a script file for display and span resolution.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load script %s: %w", path, err)
	}
	text := expandTabs(string(data), tabWidth)
	lines := strings.Split(text, "\n")
	// A trailing newline yields one empty phantom line; drop it.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return &Script{Path: path, Lines: lines}, nil
}

// Line returns the 1-based source line, or "" when out of range.
func (s *Script) Line(n int) string {
	if s == nil || n < 1 || n > len(s.Lines) {
		return ""
	}
	return s.Lines[n-1]
}

// expandTabs replaces tabs with spaces up to the next multiple of width,
// counting display columns and resetting at newlines.
func expandTabs(text string, width int) string {
	if !strings.ContainsRune(text, '\t') {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	col := 0
	for _, r := range text {
		switch r {
		case '\t':
			pad := width - col%width
			b.WriteString(strings.Repeat(" ", pad))
			col += pad
		case '\n':
			b.WriteRune(r)
			col = 0
		default:
			b.WriteRune(r)
			col += runewidth.RuneWidth(r)
		}
	}
	return b.String()
}

// Cache loads scripts once and serves repeat lookups by path. A path that
// fails to load stays failed for the cache's lifetime; callers degrade to
// rendering without source context.
type Cache struct {
	scripts map[string]*Script
	errs    map[string]error
}

// NewCache returns an empty script cache.
func NewCache() *Cache {
	return &Cache{
		scripts: make(map[string]*Script),
		errs:    make(map[string]error),
	}
}

// Get returns the cached script for path, loading it on first use.
func (c *Cache) Get(path string) (*Script, error) {
	if s, ok := c.scripts[path]; ok {
		return s, nil
	}
	if err, ok := c.errs[path]; ok {
		return nil, err
	}
	s, err := Load(path)
	if err != nil {
		c.errs[path] = err
		return nil, err
	}
	c.scripts[path] = s
	return s, nil
}
