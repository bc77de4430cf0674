// Package handle ties a game's settings, paths, store and engine together
// into one object per game installation.
package handle

import (
	"log/slog"

	"github.com/roach88/loadorder/internal/engine"
	"github.com/roach88/loadorder/internal/game"
	"github.com/roach88/loadorder/internal/plugin"
	"github.com/roach88/loadorder/internal/status"
	"github.com/roach88/loadorder/internal/store"
	"github.com/roach88/loadorder/internal/validate"
)

// Handle is an open game installation. Not safe for concurrent use.
type Handle struct {
	settings game.Settings
	paths    game.Paths
	method   game.Method
	engine   *engine.Engine
	logger   *slog.Logger
}

type config struct {
	method    *game.Method
	maxActive int
	recorder  engine.Recorder
	logger    *slog.Logger
}

// Option configures Open.
type Option func(*config)

// WithMethod overrides the game's default load order method.
func WithMethod(m game.Method) Option {
	return func(c *config) {
		c.method = &m
	}
}

// WithMaxActive overrides the active plugin ceiling. Values <= 0 keep the
// game's default.
func WithMaxActive(n int) Option {
	return func(c *config) {
		c.maxActive = n
	}
}

// WithRecorder journals every committed state.
func WithRecorder(r engine.Recorder) Option {
	return func(c *config) {
		c.recorder = r
	}
}

// WithLogger sets the logger used by the handle, its store and its engine.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Open resolves the game's paths, builds the store for its load order
// method and loads the current state. Warnings from the initial load are
// returned alongside the handle.
func Open(code game.Code, gamePath, localPath string, opts ...Option) (*Handle, []status.Warning, error) {
	if gamePath == "" {
		return nil, nil, status.Errorf(status.InvalidArgs, "game path is required")
	}
	settings, err := game.Lookup(code)
	if err != nil {
		return nil, nil, err
	}

	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	method := settings.DefaultMethod
	if cfg.method != nil {
		method = *cfg.method
	}
	if settings.AppDataFolder != "" && localPath == "" {
		return nil, nil, status.Errorf(status.InvalidArgs, "%s needs a local application data path", settings.Name)
	}
	if cfg.maxActive > 0 {
		settings.MaxActive = cfg.maxActive
	}

	paths := settings.Resolve(gamePath, localPath)
	logger := cfg.logger.With("game", settings.Name, "method", method.String())

	st, err := store.New(method, paths, store.NewActiveList(settings.ActiveList, paths.ActiveFile), logger)
	if err != nil {
		return nil, nil, err
	}

	rules := validate.Rules{
		MasterFirst:    settings.MasterFirst,
		MaxActive:      settings.MaxActive,
		ImplicitActive: settings.ImplicitActive,
	}
	if method == game.MethodTextfile {
		rules.MasterFile = settings.MasterFile
	}

	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if cfg.recorder != nil {
		engineOpts = append(engineOpts, engine.WithRecorder(cfg.recorder))
	}
	scanner := &plugin.Scanner{Dir: paths.PluginsDir, Format: settings.Format, Logger: logger}
	eng := engine.New(scanner, st, rules, engineOpts...)

	warnings, err := eng.Load()
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("opened game", "plugins_dir", paths.PluginsDir)

	return &Handle{
		settings: settings,
		paths:    paths,
		method:   method,
		engine:   eng,
		logger:   logger,
	}, warnings, nil
}

// Close releases the handle. Further calls fail with InvalidArgs.
func (h *Handle) Close() {
	if h == nil {
		return
	}
	h.engine = nil
}

func (h *Handle) eng() (*engine.Engine, error) {
	if h == nil || h.engine == nil {
		return nil, status.Errorf(status.InvalidArgs, "game handle is closed")
	}
	return h.engine, nil
}

// Settings returns the game settings in effect, overrides applied.
func (h *Handle) Settings() game.Settings { return h.settings }

// Paths returns the resolved file locations.
func (h *Handle) Paths() game.Paths { return h.paths }

// Method returns the load order method in use.
func (h *Handle) Method() game.Method { return h.method }

// Reload re-reads the state from disk.
func (h *Handle) Reload() ([]status.Warning, error) {
	e, err := h.eng()
	if err != nil {
		return nil, err
	}
	return e.Load()
}

// Audit reports every rule the on-disk state violates, without changing it.
func (h *Handle) Audit() ([]status.Warning, []*status.Error, error) {
	e, err := h.eng()
	if err != nil {
		return nil, nil, err
	}
	return e.Audit()
}

func (h *Handle) LoadOrder() ([]string, error) {
	e, err := h.eng()
	if err != nil {
		return nil, err
	}
	return e.LoadOrder()
}

func (h *Handle) ActivePlugins() ([]string, error) {
	e, err := h.eng()
	if err != nil {
		return nil, err
	}
	return e.ActivePlugins()
}

func (h *Handle) Plugins() ([]plugin.Record, error) {
	e, err := h.eng()
	if err != nil {
		return nil, err
	}
	return e.Plugins()
}

func (h *Handle) Position(name string) (int, error) {
	e, err := h.eng()
	if err != nil {
		return 0, err
	}
	return e.Position(name)
}

func (h *Handle) PluginAt(index int) (string, error) {
	e, err := h.eng()
	if err != nil {
		return "", err
	}
	return e.PluginAt(index)
}

func (h *Handle) IsActive(name string) (bool, error) {
	e, err := h.eng()
	if err != nil {
		return false, err
	}
	return e.IsActive(name)
}

func (h *Handle) SetLoadOrder(names []string) ([]status.Warning, error) {
	e, err := h.eng()
	if err != nil {
		return nil, err
	}
	return e.SetLoadOrder(names)
}

func (h *Handle) SetActivePlugins(names []string) ([]status.Warning, error) {
	e, err := h.eng()
	if err != nil {
		return nil, err
	}
	return e.SetActivePlugins(names)
}

func (h *Handle) Activate(name string) ([]status.Warning, error) {
	e, err := h.eng()
	if err != nil {
		return nil, err
	}
	return e.Activate(name)
}

func (h *Handle) Deactivate(name string) ([]status.Warning, error) {
	e, err := h.eng()
	if err != nil {
		return nil, err
	}
	return e.Deactivate(name)
}

func (h *Handle) MovePlugin(name string, index int) ([]status.Warning, error) {
	e, err := h.eng()
	if err != nil {
		return nil, err
	}
	return e.MovePlugin(name, index)
}

// SetState replaces the load order and active set together.
func (h *Handle) SetState(order, active []string) ([]status.Warning, error) {
	e, err := h.eng()
	if err != nil {
		return nil, err
	}
	return e.SetState(order, active)
}
