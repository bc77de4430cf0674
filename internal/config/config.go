// Package config reads the installation file that names game installations
// so the CLI does not need every path on every call.
//
// A file is YAML (loadorder.yaml) or CUE (loadorder.cue); the extension
// decides. Values are layered: defaults, then the file, then LOADORDER_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"
)

// DefaultFile is the file name looked up when no path is given.
const DefaultFile = "loadorder.yaml"

// Config is the installation file.
type Config struct {
	// Default names the installation used when none is selected.
	Default string `yaml:"default,omitempty" json:"default,omitempty"`

	// History is the path of the journal database. Empty disables
	// journaling.
	History string `yaml:"history,omitempty" json:"history,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty" json:"log_level,omitempty"`

	Installations map[string]Installation `yaml:"installations,omitempty" json:"installations,omitempty"`
}

// Installation is one game install.
type Installation struct {
	Game      string `yaml:"game" json:"game"`
	GamePath  string `yaml:"game_path" json:"game_path"`
	LocalPath string `yaml:"local_path,omitempty" json:"local_path,omitempty"`

	// Method overrides the game's default load order method.
	Method string `yaml:"method,omitempty" json:"method,omitempty"`

	// MaxActive overrides the active plugin ceiling when positive.
	MaxActive int `yaml:"max_active,omitempty" json:"max_active,omitempty"`
}

// Defaults returns a Config with defaults applied.
func Defaults() Config {
	return Config{
		LogLevel:      "info",
		Installations: map[string]Installation{},
	}
}

// Error is a configuration error. Pos is set for CUE errors that carry a
// source position.
type Error struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("config: %s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("config: %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("config: %s", e.Message)
}

// DefaultPath returns the installation file in the user's config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultFile
	}
	return filepath.Join(dir, "loadorder", DefaultFile)
}
