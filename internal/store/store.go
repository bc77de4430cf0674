package store

import (
	"log/slog"

	"github.com/roach88/loadorder/internal/game"
	"github.com/roach88/loadorder/internal/plugin"
	"github.com/roach88/loadorder/internal/status"
)

// State is a load order and the active subset of it.
type State struct {
	Order  []string
	Active []string
}

// Clone returns a deep copy.
func (s State) Clone() State {
	return State{
		Order:  append([]string(nil), s.Order...),
		Active: append([]string(nil), s.Active...),
	}
}

// OrderStore reads and writes the persisted State of one game installation.
type OrderStore interface {
	// Method reports the load order method the store implements.
	Method() game.Method

	// Read returns the persisted state, repaired against the installed
	// plugins. Repairs are reported as warnings.
	Read(installed *plugin.Set) (State, []status.Warning, error)

	// Write persists a validated state.
	Write(installed *plugin.Set, s State) error

	// Revert undoes the most recent Write, putting back the content and
	// modification times it replaced. Only meaningful right after a Write
	// failed; a Write that never touched the disk leaves nothing to undo.
	Revert() error
}

// New returns the OrderStore for a method.
func New(method game.Method, paths game.Paths, active ActiveList, logger *slog.Logger) (OrderStore, error) {
	switch method {
	case game.MethodTimestamp:
		return &TimestampStore{Active: active, Logger: logger}, nil
	case game.MethodTextfile:
		if paths.OrderFile == "" {
			return nil, status.Errorf(status.InvalidArgs, "textfile method needs a load order file path")
		}
		return &TextfileStore{OrderFile: paths.OrderFile, Active: active, Logger: logger}, nil
	default:
		return nil, status.Errorf(status.InvalidArgs, "unknown load order method %d", uint(method))
	}
}

// NewActiveList returns the ActiveList format a game uses.
func NewActiveList(kind game.ActiveList, path string) ActiveList {
	if kind == game.ActiveMorrowindIni {
		return &MorrowindIni{Path: path}
	}
	return &PluginsTxt{Path: path}
}

// filterInstalled maps names to their on-disk spelling, dropping names that
// are not installed and repeated names. Each kind of drop yields one warning.
func filterInstalled(names []string, installed *plugin.Set, source string) ([]string, []status.Warning) {
	var (
		out    []string
		absent []string
		dups   []string
		seen   = make(map[string]bool, len(names))
	)
	for _, n := range names {
		canonical, ok := installed.Canonical(n)
		if !ok {
			absent = append(absent, n)
			continue
		}
		k := plugin.Key(canonical)
		if seen[k] {
			dups = append(dups, n)
			continue
		}
		seen[k] = true
		out = append(out, canonical)
	}

	var warnings []status.Warning
	if len(absent) > 0 {
		warnings = append(warnings, status.Mismatch(source+" lists plugins that are not installed", absent...))
	}
	if len(dups) > 0 {
		warnings = append(warnings, status.Mismatch(source+" lists plugins more than once", dups...))
	}
	return out, warnings
}

func keySet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[plugin.Key(n)] = true
	}
	return m
}
