// Package config loads shtrace.yaml manifests: session defaults that
// command-line flags override.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the manifest shtrace looks for next to the target script
// and up its parent directories.
const FileName = "shtrace.yaml"

// Config is the shtrace.yaml surface. Relative paths are resolved
// against the manifest's own directory.
type Config struct {
	// Sleep is the auto-advance pacing delay in seconds.
	Sleep *float64 `yaml:"sleep,omitempty"`
	// Wrapper overrides the embedded step wrapper script.
	Wrapper string `yaml:"wrapper,omitempty"`
	// Record is a JSONL transcript path.
	Record string `yaml:"record,omitempty"`
	// Log is the debug log path.
	Log string `yaml:"log,omitempty"`

	// Path is the manifest this config came from. Set after loading,
	// not from YAML.
	Path string `yaml:"-"`
}

// SleepDuration converts the sleep setting to a duration. Nil configs
// and unset values are zero.
func (c *Config) SleepDuration() time.Duration {
	if c == nil || c.Sleep == nil {
		return 0
	}
	return time.Duration(*c.Sleep * float64(time.Second))
}

// Load reads and parses a manifest. Unknown keys are errors so a typoed
// setting cannot silently vanish.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.Sleep != nil && *cfg.Sleep < 0 {
		return nil, fmt.Errorf("%s: sleep must not be negative", path)
	}

	cfg.Path = path
	dir := filepath.Dir(path)
	cfg.Wrapper = absFrom(dir, cfg.Wrapper)
	cfg.Record = absFrom(dir, cfg.Record)
	cfg.Log = absFrom(dir, cfg.Log)
	return &cfg, nil
}

// Discover walks up from startPath to the nearest shtrace.yaml and loads
// it. Returns nil without error when no manifest exists.
func Discover(startPath string) (*Config, error) {
	abs, err := filepath.Abs(startPath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	dir := abs
	if !info.IsDir() {
		dir = filepath.Dir(abs)
	}

	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return Load(candidate)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func absFrom(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
