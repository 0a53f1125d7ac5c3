// Package config handles aves.toml tool configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked for next to the invocation.
const FileName = "aves.toml"

// Config represents an aves.toml tool configuration.
type Config struct {
	Engine  Engine  `toml:"engine"`
	Machine Machine `toml:"machine"`

	// Dir is the directory containing the aves.toml file (set at load time).
	Dir string `toml:"-"`
}

// Engine configures how programs are executed.
type Engine struct {
	// Command is the external engine argv. Empty means run in-process.
	Command []string `toml:"command"`
}

// Machine configures execution limits.
type Machine struct {
	MaxStack int   `toml:"max-stack"` // operand stack entries, 0 = default
	MaxSteps int64 `toml:"max-steps"` // executed instructions, 0 = unlimited
	Trace    bool  `toml:"trace"`     // verbose run logging, same as -v
}

// Default returns the configuration used when no aves.toml exists.
func Default() *Config {
	return &Config{}
}

// Load parses an aves.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return &c, nil
}

// FindAndLoad walks up from startDir to find an aves.toml file, then loads
// it. Returns the defaults if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}
