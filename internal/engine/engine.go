package engine

import (
	"log/slog"

	"github.com/roach88/loadorder/internal/plugin"
	"github.com/roach88/loadorder/internal/status"
	"github.com/roach88/loadorder/internal/store"
	"github.com/roach88/loadorder/internal/validate"
)

// Scanner produces the installed plugin set. Implemented by plugin.Scanner.
type Scanner interface {
	Scan() (*plugin.Set, []status.Warning, error)
}

// Recorder journals committed states. Implemented by history.Recorder.
type Recorder interface {
	Record(operation string, order, active []string) error
}

// Engine is the load order engine of one game installation.
//
// INVARIANTS (hold after every successful call once loaded):
//   - current.Active is a subset of current.Order
//   - len(current.Active) <= rules.MaxActive
//   - no master follows a non-master when rules.MasterFirst is set
//   - the store variant never changes after construction
type Engine struct {
	scanner  Scanner
	store    store.OrderStore
	rules    validate.Rules
	recorder Recorder
	logger   *slog.Logger

	loaded    bool
	installed *plugin.Set
	current   store.State
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithRecorder journals every committed state.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an engine in the Uninitialized state.
//
// rules.Installed is ignored; the engine fills it from each scan.
func New(scanner Scanner, s store.OrderStore, rules validate.Rules, opts ...Option) *Engine {
	rules.Installed = nil
	rules.ImplicitActive = append([]string(nil), rules.ImplicitActive...)

	e := &Engine{
		scanner: scanner,
		store:   s,
		rules:   rules,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Loaded reports whether Load has succeeded at least once.
func (e *Engine) Loaded() bool {
	return e.loaded
}

// Load scans the plugin directory and reads the persisted state, repairing
// it where needed. Repairs are returned as warnings; nothing is written.
//
// Calling Load on a loaded engine re-reads from disk. On failure the
// previous state is kept.
func (e *Engine) Load() ([]status.Warning, error) {
	set, warnings, err := e.scanner.Scan()
	if err != nil {
		return nil, err
	}

	st, w, err := e.store.Read(set)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, w...)

	st, w = e.normalize(set, st)
	warnings = append(warnings, w...)

	if err := validate.Check(toCandidate(st), e.rulesFor(set)); err != nil {
		return nil, err
	}

	e.installed = set
	e.current = st
	e.loaded = true
	e.logger.Debug("load order loaded",
		"method", e.store.Method(),
		"plugins", len(st.Order),
		"active", len(st.Active),
		"warnings", len(warnings),
	)
	return warnings, nil
}

// Audit scans and reads the persisted state and reports every rule the
// state violates before normalisation. Nothing is written and the engine's
// own state is unchanged.
func (e *Engine) Audit() ([]status.Warning, []*status.Error, error) {
	set, warnings, err := e.scanner.Scan()
	if err != nil {
		return nil, nil, err
	}
	st, w, err := e.store.Read(set)
	if err != nil {
		return nil, nil, err
	}
	warnings = append(warnings, w...)
	return warnings, validate.CheckAll(toCandidate(st), e.rulesFor(set)), nil
}

// normalize brings a state read from disk in line with the rules the engine
// enforces on commits:
//   - masters are moved before non-masters, keeping relative order
//   - the game master file is moved to the front
//   - active plugins with unencodable names are deactivated
//   - active plugins beyond the ceiling are deactivated
//   - installed implicitly active plugins are activated
func (e *Engine) normalize(set *plugin.Set, st store.State) (store.State, []status.Warning) {
	var warnings []status.Warning

	if e.rules.MasterFirst {
		var masters, others []string
		for _, name := range st.Order {
			if set.IsMaster(name) {
				masters = append(masters, name)
			} else {
				others = append(others, name)
			}
		}
		partitioned := append(masters, others...)
		if !equalOrder(partitioned, st.Order) {
			warnings = append(warnings, status.Mismatch("masters were positioned after non-masters and have been moved up"))
			st.Order = partitioned
		}
	}

	if mf := e.rules.MasterFile; mf != "" && set.Has(mf) && len(st.Order) > 0 && !plugin.EqualNames(st.Order[0], mf) {
		if i := indexOf(st.Order, mf); i > 0 {
			st.Order = moveTo(st.Order, i, 0)
			warnings = append(warnings, status.Mismatch(mf+" was not first and has been moved to the top"))
		}
	}

	var kept, badNames []string
	for _, name := range st.Active {
		if !plugin.Encodable(name) {
			badNames = append(badNames, name)
			continue
		}
		kept = append(kept, name)
	}
	if len(badNames) > 0 {
		warnings = append(warnings, status.Warning{
			Code:    status.BadFilename,
			Message: "active plugins with unencodable filenames have been deactivated",
			Plugins: badNames,
		})
	}
	st.Active = kept

	var implicit []string
	for _, name := range e.rules.ImplicitActive {
		canonical, ok := set.Canonical(name)
		if ok && indexOf(st.Active, canonical) < 0 {
			implicit = append(implicit, canonical)
		}
	}
	st.Active = append(implicit, st.Active...)

	if max := e.rules.MaxActive; max > 0 && len(st.Active) > max {
		warnings = append(warnings, status.Mismatch("too many plugins are active; the excess has been deactivated", st.Active[max:]...))
		st.Active = st.Active[:max]
	}

	return st, warnings
}

func (e *Engine) rulesFor(set *plugin.Set) validate.Rules {
	r := e.rules
	r.Installed = set
	return r
}

// Installed returns the plugin set of the last successful Load.
func (e *Engine) Installed() (*plugin.Set, error) {
	if !e.loaded {
		return nil, errNotLoaded
	}
	return e.installed, nil
}

// Plugins returns the installed plugin records in load order.
func (e *Engine) Plugins() ([]plugin.Record, error) {
	if !e.loaded {
		return nil, errNotLoaded
	}
	out := make([]plugin.Record, 0, len(e.current.Order))
	for _, name := range e.current.Order {
		if r, ok := e.installed.Get(name); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// LoadOrder returns a copy of the current load order.
func (e *Engine) LoadOrder() ([]string, error) {
	if !e.loaded {
		return nil, errNotLoaded
	}
	return append([]string(nil), e.current.Order...), nil
}

// ActivePlugins returns a copy of the current active set.
func (e *Engine) ActivePlugins() ([]string, error) {
	if !e.loaded {
		return nil, errNotLoaded
	}
	return append([]string(nil), e.current.Active...), nil
}

// State returns a copy of the current load order and active set.
func (e *Engine) State() (store.State, error) {
	if !e.loaded {
		return store.State{}, errNotLoaded
	}
	return e.current.Clone(), nil
}

// Position returns the load order index of a plugin.
func (e *Engine) Position(name string) (int, error) {
	if !e.loaded {
		return 0, errNotLoaded
	}
	i := indexOf(e.current.Order, name)
	if i < 0 {
		return 0, status.Errorf(status.FileNotFound, "plugin %q is not in the load order", name)
	}
	return i, nil
}

// PluginAt returns the plugin at a load order index.
func (e *Engine) PluginAt(index int) (string, error) {
	if !e.loaded {
		return "", errNotLoaded
	}
	if index < 0 || index >= len(e.current.Order) {
		return "", status.Errorf(status.InvalidArgs, "index %d is outside the load order (0-%d)", index, len(e.current.Order)-1)
	}
	return e.current.Order[index], nil
}

// IsActive reports whether a plugin is active.
func (e *Engine) IsActive(name string) (bool, error) {
	if !e.loaded {
		return false, errNotLoaded
	}
	if !e.installed.Has(name) {
		return false, status.Errorf(status.FileNotFound, "plugin %q is not installed", name)
	}
	return indexOf(e.current.Active, name) >= 0, nil
}

func toCandidate(st store.State) validate.Candidate {
	return validate.Candidate{Order: st.Order, Active: st.Active}
}

// indexOf finds name case-insensitively.
func indexOf(names []string, name string) int {
	k := plugin.Key(name)
	for i, n := range names {
		if plugin.Key(n) == k {
			return i
		}
	}
	return -1
}

func equalOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// moveTo returns a copy of names with the element at from moved to index to.
func moveTo(names []string, from, to int) []string {
	out := make([]string, 0, len(names))
	item := names[from]
	for i, n := range names {
		if i != from {
			out = append(out, n)
		}
	}
	if to > len(out) {
		to = len(out)
	}
	out = append(out, "")
	copy(out[to+1:], out[to:])
	out[to] = item
	return out
}
