package engine

import (
	"github.com/roach88/loadorder/internal/plugin"
	"github.com/roach88/loadorder/internal/status"
	"github.com/roach88/loadorder/internal/store"
	"github.com/roach88/loadorder/internal/validate"
)

// Operation names, as journaled.
const (
	OpSetLoadOrder     = "set-load-order"
	OpSetActivePlugins = "set-active-plugins"
	OpActivate         = "activate"
	OpDeactivate       = "deactivate"
	OpMovePlugin       = "move-plugin"
	OpSetState         = "set-state"
)

// buildFunc computes a complete candidate from a copy of the current state.
type buildFunc func(cur store.State) (store.State, []status.Warning, error)

// mutate runs the mutation flow described in the package documentation.
func (e *Engine) mutate(op string, build buildFunc) ([]status.Warning, error) {
	if !e.loaded {
		return nil, errNotLoaded
	}

	snapshot := e.current.Clone()
	candidate, warnings, err := build(snapshot.Clone())
	if err != nil {
		return nil, err
	}

	if err := validate.Check(toCandidate(candidate), e.rulesFor(e.installed)); err != nil {
		e.logger.Debug("candidate rejected", "operation", op, "error", err)
		return nil, err
	}

	if err := e.store.Write(e.installed, candidate); err != nil {
		e.logger.Warn("persist failed, restoring previous state", "operation", op, "error", err)
		if rbErr := e.store.Revert(); rbErr != nil {
			e.logger.Error("rollback failed", "operation", op, "error", rbErr)
			return nil, &RollbackError{Operation: op, Err: err, RollbackErr: rbErr}
		}
		return nil, err
	}

	e.current = candidate
	e.logger.Debug("state committed",
		"operation", op,
		"plugins", len(candidate.Order),
		"active", len(candidate.Active),
	)

	if e.recorder != nil {
		if err := e.recorder.Record(op, candidate.Order, candidate.Active); err != nil {
			e.logger.Warn("failed to journal state", "operation", op, "error", err)
		}
	}
	return warnings, nil
}

// canonical maps names to their on-disk spelling. Names that are not
// installed are kept as given so validation can report them.
func (e *Engine) canonical(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		if c, ok := e.installed.Canonical(n); ok {
			out[i] = c
		} else {
			out[i] = n
		}
	}
	return out
}

// lookup checks that name is installed and returns its on-disk spelling.
func (e *Engine) lookup(name string) (string, error) {
	if name == "" {
		return "", status.Errorf(status.InvalidArgs, "empty plugin name")
	}
	c, ok := e.installed.Canonical(name)
	if !ok {
		return "", status.Errorf(status.FileNotFound, "plugin %q is not installed", name)
	}
	return c, nil
}

// SetLoadOrder replaces the load order.
//
// Active plugins missing from names are deactivated with a mismatch
// warning. Installed plugins missing from names are then appended in their
// current relative order, so the order still lists every installed plugin.
func (e *Engine) SetLoadOrder(names []string) ([]status.Warning, error) {
	return e.mutate(OpSetLoadOrder, func(cur store.State) (store.State, []status.Warning, error) {
		order := e.canonical(names)

		var warnings []status.Warning
		active, dropped := keepListed(cur.Active, order)
		if len(dropped) > 0 {
			warnings = append(warnings, status.Mismatch("active plugins missing from the new load order were deactivated", dropped...))
		}

		listed := make(map[string]bool, len(order))
		for _, n := range order {
			listed[plugin.Key(n)] = true
		}
		for _, n := range cur.Order {
			if !listed[plugin.Key(n)] && e.installed.Has(n) {
				order = append(order, n)
			}
		}
		return store.State{Order: order, Active: active}, warnings, nil
	})
}

// SetActivePlugins replaces the active set. The load order is unchanged.
func (e *Engine) SetActivePlugins(names []string) ([]status.Warning, error) {
	return e.mutate(OpSetActivePlugins, func(cur store.State) (store.State, []status.Warning, error) {
		active, err := e.activeCandidate(names)
		if err != nil {
			return store.State{}, nil, err
		}
		cur.Active = active
		return cur, nil, nil
	})
}

// activeCandidate canonicalises a requested active set. Filenames are
// checked first so an unencodable name reports BadFilename even if it is not
// installed. Repeated names collapse to one entry.
func (e *Engine) activeCandidate(names []string) ([]string, error) {
	for _, n := range names {
		if err := plugin.ValidateFilename(n); err != nil {
			return nil, err
		}
	}
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		k := plugin.Key(n)
		if seen[k] {
			continue
		}
		seen[k] = true
		c, err := e.lookup(n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Activate adds a plugin to the active set. Activating an active plugin
// succeeds without writing.
func (e *Engine) Activate(name string) ([]status.Warning, error) {
	if !e.loaded {
		return nil, errNotLoaded
	}
	if err := plugin.ValidateFilename(name); err != nil {
		return nil, err
	}
	c, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	if indexOf(e.current.Active, c) >= 0 {
		return nil, nil
	}
	return e.mutate(OpActivate, func(cur store.State) (store.State, []status.Warning, error) {
		cur.Active = append(cur.Active, c)
		return cur, nil, nil
	})
}

// Deactivate removes a plugin from the active set. Deactivating an inactive
// plugin succeeds without writing.
func (e *Engine) Deactivate(name string) ([]status.Warning, error) {
	if !e.loaded {
		return nil, errNotLoaded
	}
	c, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	i := indexOf(e.current.Active, c)
	if i < 0 {
		return nil, nil
	}
	return e.mutate(OpDeactivate, func(cur store.State) (store.State, []status.Warning, error) {
		cur.Active = append(cur.Active[:i], cur.Active[i+1:]...)
		return cur, nil, nil
	})
}

// MovePlugin moves a plugin to index in the load order. An index past the
// end moves it to the end.
func (e *Engine) MovePlugin(name string, index int) ([]status.Warning, error) {
	if !e.loaded {
		return nil, errNotLoaded
	}
	if index < 0 {
		return nil, status.Errorf(status.InvalidArgs, "negative load order index %d", index)
	}
	c, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	from := indexOf(e.current.Order, c)
	if from < 0 {
		return nil, status.Errorf(status.FileNotFound, "plugin %q is not in the load order", name)
	}
	if index >= len(e.current.Order) {
		index = len(e.current.Order) - 1
	}
	if from == index {
		return nil, nil
	}
	return e.mutate(OpMovePlugin, func(cur store.State) (store.State, []status.Warning, error) {
		cur.Order = moveTo(cur.Order, from, index)
		return cur, nil, nil
	})
}

// SetState replaces both the load order and the active set in one
// validated write. Used to restore journaled states.
//
// Installed plugins missing from order are appended as in SetLoadOrder.
// Active names that are no longer installed are dropped with a mismatch
// warning, since a journaled state may predate an uninstall.
func (e *Engine) SetState(order, active []string) ([]status.Warning, error) {
	return e.mutate(OpSetState, func(cur store.State) (store.State, []status.Warning, error) {
		var warnings []status.Warning

		var gone []string
		var kept []string
		for _, n := range order {
			if e.installed.Has(n) {
				kept = append(kept, n)
			} else {
				gone = append(gone, n)
			}
		}
		var goneActive []string
		var keptActive []string
		for _, n := range active {
			if e.installed.Has(n) {
				keptActive = append(keptActive, n)
			} else {
				goneActive = append(goneActive, n)
			}
		}
		gone = append(gone, goneActive...)
		if len(gone) > 0 {
			warnings = append(warnings, status.Mismatch("plugins that are no longer installed were skipped", dedupe(gone)...))
		}

		newOrder := e.canonical(kept)
		listed := make(map[string]bool, len(newOrder))
		for _, n := range newOrder {
			listed[plugin.Key(n)] = true
		}
		for _, n := range cur.Order {
			if !listed[plugin.Key(n)] {
				newOrder = append(newOrder, n)
			}
		}

		newActive, err := e.activeCandidate(keptActive)
		if err != nil {
			return store.State{}, nil, err
		}
		return store.State{Order: newOrder, Active: newActive}, warnings, nil
	})
}

// keepListed splits active into names present in order and the rest.
func keepListed(active, order []string) (kept, dropped []string) {
	inOrder := make(map[string]bool, len(order))
	for _, n := range order {
		inOrder[plugin.Key(n)] = true
	}
	for _, n := range active {
		if inOrder[plugin.Key(n)] {
			kept = append(kept, n)
		} else {
			dropped = append(dropped, n)
		}
	}
	return kept, dropped
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		k := plugin.Key(n)
		if !seen[k] {
			seen[k] = true
			out = append(out, n)
		}
	}
	return out
}
