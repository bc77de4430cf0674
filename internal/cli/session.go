package cli

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/loadorder/internal/config"
	"github.com/roach88/loadorder/internal/game"
	"github.com/roach88/loadorder/internal/handle"
	"github.com/roach88/loadorder/internal/history"
	"github.com/roach88/loadorder/internal/status"
)

// session is an open installation for the duration of one command.
type session struct {
	name     string
	handle   *handle.Handle
	journal  *history.Store
	warnings []status.Warning
	logger   *slog.Logger
}

func (s *session) Close() {
	s.handle.Close()
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Warn("failed to close history", "error", err)
		}
	}
}

// loadConfig reads the installation file named by --config, or the default
// file when it exists. Without a file only LOADORDER_* variables apply.
func (o *RootOptions) loadConfig() (config.Config, error) {
	path := o.Config
	if path != "" && !fileExists(path) {
		return config.Config{}, NewExitError(ExitCommandError, "installation file not found: "+path)
	}
	if path == "" {
		if p := config.DefaultPath(); fileExists(p) {
			path = p
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, WrapExitError(ExitCommandError, "failed to load installation file", err)
	}
	if issues := config.Validate(&cfg); len(issues) > 0 {
		msgs := make([]string, len(issues))
		for i, issue := range issues {
			msgs[i] = issue.String()
		}
		return cfg, NewExitError(ExitCommandError, "invalid installation file:\n  "+strings.Join(msgs, "\n  "))
	}
	return cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// newLogger builds the slog text logger on stderr. --verbose forces debug;
// otherwise the configured level applies, defaulting to warn so command
// output stays clean.
func (o *RootOptions) newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	level := slog.LevelWarn
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "error":
		level = slog.LevelError
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// installation merges the installation file, environment and flags. Flags
// win.
func (o *RootOptions) installation(cfg config.Config) (string, config.Installation, error) {
	name := o.Install
	if name == "" {
		name = cfg.Default
	}
	in, err := cfg.Resolve(name)
	if err != nil {
		return "", in, WrapExitError(ExitCommandError, "failed to resolve installation", err)
	}
	if o.Game != "" {
		in.Game = o.Game
	}
	if o.GamePath != "" {
		in.GamePath = o.GamePath
	}
	if o.LocalPath != "" {
		in.LocalPath = o.LocalPath
	}
	if o.Method != "" {
		in.Method = o.Method
	}
	if o.MaxActive > 0 {
		in.MaxActive = o.MaxActive
	}

	if issues := config.ValidateInstallation("installation", in); len(issues) > 0 {
		return "", in, NewExitError(ExitCommandError, issues[0].String())
	}
	if name == "" {
		name = in.Game
	}
	return name, in, nil
}

// historyPath returns the journal path from --history or the installation
// file. Empty disables journaling.
func (o *RootOptions) historyPath(cfg config.Config) string {
	if o.History != "" {
		return o.History
	}
	return cfg.History
}

// openJournal opens the history database, or returns nil when journaling is
// disabled.
func (o *RootOptions) openJournal(cfg config.Config) (*history.Store, error) {
	path := o.historyPath(cfg)
	if path == "" {
		return nil, nil
	}
	st, err := history.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open history", err)
	}
	return st, nil
}

// open resolves the installation and opens a game handle for it. With
// --verbose the resolved installation is reported through f.
func (o *RootOptions) open(cmd *cobra.Command, f *OutputFormatter) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := o.newLogger(cmd.ErrOrStderr(), cfg)

	name, in, err := o.installation(cfg)
	if err != nil {
		return nil, err
	}
	code, _ := game.ParseCode(in.Game)

	opts := []handle.Option{handle.WithLogger(logger)}
	method := ""
	if in.Method != "" {
		m, _ := game.ParseMethod(in.Method)
		opts = append(opts, handle.WithMethod(m))
		method = m.String()
	}
	if in.MaxActive > 0 {
		opts = append(opts, handle.WithMaxActive(in.MaxActive))
	}

	journal, err := o.openJournal(cfg)
	if err != nil {
		return nil, err
	}
	if journal != nil {
		if method == "" {
			settings, _ := game.Lookup(code)
			method = settings.DefaultMethod.String()
		}
		opts = append(opts, handle.WithRecorder(&history.Recorder{
			Store:        journal,
			Installation: name,
			Game:         uint(code),
			Method:       method,
		}))
	}

	h, warnings, err := handle.Open(code, in.GamePath, in.LocalPath, opts...)
	if err != nil {
		if journal != nil {
			_ = journal.Close()
		}
		return nil, StatusExitError("failed to open installation", err)
	}
	f.VerboseLog("installation %s: %s at %s (%s method)", name, code, in.GamePath, h.Method())
	return &session{name: name, handle: h, journal: journal, warnings: warnings, logger: logger}, nil
}

// fail reports err through the formatter in JSON mode and returns the
// matching ExitError. Errors without an exit code get one from their return
// code.
func fail(f *OutputFormatter, message string, err error) error {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		exitErr = StatusExitError(message, err)
	}
	if f.Format == "json" {
		_ = f.Error(codeName(err), exitErr.Error(), nil)
	}
	return exitErr
}

func codeName(err error) string {
	var se *status.Error
	if errors.As(err, &se) {
		return se.Code.String()
	}
	return "COMMAND_ERROR"
}
