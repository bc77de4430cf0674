package config

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load and Resolve.
const (
	EnvInstall   = "LOADORDER_INSTALL"
	EnvHistory   = "LOADORDER_HISTORY"
	EnvLogLevel  = "LOADORDER_LOG_LEVEL"
	EnvGame      = "LOADORDER_GAME"
	EnvGamePath  = "LOADORDER_GAME_PATH"
	EnvLocalPath = "LOADORDER_LOCAL_PATH"
	EnvMethod    = "LOADORDER_METHOD"
	EnvMaxActive = "LOADORDER_MAX_ACTIVE"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

// Load reads the installation file at path and applies environment
// overrides. An empty path or a missing file yields defaults and
// environment overrides only.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		applyEnvOverrides(&cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, &Error{Path: path, Message: err.Error()}
	}

	if strings.EqualFold(filepath.Ext(path), ".cue") {
		err = decodeCUE(path, data, &cfg)
	} else {
		err = decodeYAML(path, data, &cfg)
	}
	if err != nil {
		return cfg, err
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandPaths(&cfg)
	return cfg, nil
}

func decodeYAML(path string, data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return &Error{Path: path, Message: "failed to parse YAML: " + err.Error()}
	}
	return nil
}

// decodeCUE compiles the file as a single CUE value and decodes it through
// the json tags of Config.
func decodeCUE(path string, data []byte, cfg *Config) error {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return cueError(path, "failed to compile CUE", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return cueError(path, "CUE value is not concrete", err)
	}
	if err := v.Decode(cfg); err != nil {
		return cueError(path, "failed to decode CUE", err)
	}
	return nil
}

func cueError(path, message string, err error) *Error {
	e := &Error{Path: path, Message: message + ": " + err.Error()}
	if positions := cueerrors.Positions(err); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}

// applyDefaults fills zero-value fields.
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Installations == nil {
		cfg.Installations = map[string]Installation{}
	}
	if cfg.Default == "" && len(cfg.Installations) == 1 {
		for name := range cfg.Installations {
			cfg.Default = name
		}
	}
}

// applyEnvOverrides reads the file-level LOADORDER_* variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvInstall); v != "" {
		cfg.Default = v
	}
	if v := os.Getenv(EnvHistory); v != "" {
		cfg.History = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
}

// expandPaths resolves ${VAR} references in path fields.
func expandPaths(cfg *Config) {
	cfg.History = expandEnvVars(cfg.History)
	for name, in := range cfg.Installations {
		in.GamePath = expandEnvVars(in.GamePath)
		in.LocalPath = expandEnvVars(in.LocalPath)
		cfg.Installations[name] = in
	}
}

// Resolve returns the named installation, or the default one when name is
// empty, with per-installation LOADORDER_* overrides applied. An unknown
// name is an error unless the environment alone describes an installation.
func (c Config) Resolve(name string) (Installation, error) {
	if name == "" {
		name = c.Default
	}
	in, ok := c.Installations[name]
	if !ok && name != "" {
		return Installation{}, &Error{Message: "unknown installation " + strconv.Quote(name)}
	}
	applyInstallationEnv(&in)
	return in, nil
}

func applyInstallationEnv(in *Installation) {
	if v := os.Getenv(EnvGame); v != "" {
		in.Game = v
	}
	if v := os.Getenv(EnvGamePath); v != "" {
		in.GamePath = v
	}
	if v := os.Getenv(EnvLocalPath); v != "" {
		in.LocalPath = v
	}
	if v := os.Getenv(EnvMethod); v != "" {
		in.Method = v
	}
	if v := os.Getenv(EnvMaxActive); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			in.MaxActive = n
		}
	}
}

// Save writes cfg as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
