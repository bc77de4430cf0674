package config

import (
	"fmt"
	"slices"
	"sort"

	"github.com/roach88/loadorder/internal/game"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Validate checks a Config and returns every issue found, in a stable
// order. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.LogLevel != "" && !slices.Contains(validLogLevels, cfg.LogLevel) {
		issues = append(issues, ValidationIssue{
			Path:    "log_level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.LogLevel),
		})
	}

	if cfg.Default != "" && len(cfg.Installations) > 0 {
		if _, ok := cfg.Installations[cfg.Default]; !ok {
			issues = append(issues, ValidationIssue{
				Path:    "default",
				Message: fmt.Sprintf("unknown installation %q", cfg.Default),
			})
		}
	}

	names := make([]string, 0, len(cfg.Installations))
	for name := range cfg.Installations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		issues = append(issues, ValidateInstallation("installations."+name, cfg.Installations[name])...)
	}
	return issues
}

// ValidateInstallation checks one installation. prefix is used in issue
// paths.
func ValidateInstallation(prefix string, in Installation) []ValidationIssue {
	var issues []ValidationIssue

	code, err := game.ParseCode(in.Game)
	if err != nil {
		issues = append(issues, ValidationIssue{Path: prefix + ".game", Message: fmt.Sprintf("unknown game %q", in.Game)})
	}
	if in.GamePath == "" {
		issues = append(issues, ValidationIssue{Path: prefix + ".game_path", Message: "required"})
	}
	if err == nil {
		if s, _ := game.Lookup(code); s.AppDataFolder != "" && in.LocalPath == "" {
			issues = append(issues, ValidationIssue{Path: prefix + ".local_path", Message: "required for " + s.Name})
		}
	}
	if in.Method != "" {
		if _, err := game.ParseMethod(in.Method); err != nil {
			issues = append(issues, ValidationIssue{Path: prefix + ".method", Message: fmt.Sprintf("must be timestamp or textfile, got %q", in.Method)})
		}
	}
	if in.MaxActive < 0 {
		issues = append(issues, ValidationIssue{Path: prefix + ".max_active", Message: fmt.Sprintf("must not be negative, got %d", in.MaxActive)})
	}
	return issues
}
