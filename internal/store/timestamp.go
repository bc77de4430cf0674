package store

import (
	"log/slog"
	"os"
	"time"

	"github.com/roach88/loadorder/internal/game"
	"github.com/roach88/loadorder/internal/plugin"
	"github.com/roach88/loadorder/internal/status"
)

// TimestampInterval separates consecutive plugins when re-stamping.
const TimestampInterval = 60 * time.Second

// TimestampStore derives load order from plugin modification times.
type TimestampStore struct {
	Active ActiveList
	Logger *slog.Logger

	undo *timestampUndo
}

// timestampUndo is what the last Write replaced.
type timestampUndo struct {
	plan   []restamp
	active fileBackup
}

func (s *TimestampStore) Method() game.Method { return game.MethodTimestamp }

func (s *TimestampStore) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Read orders installed plugins by (modification time, name) and reads the
// active list. Active entries that are not installed are dropped with a
// mismatch warning.
func (s *TimestampStore) Read(installed *plugin.Set) (State, []status.Warning, error) {
	order := installed.ByTimestamp()

	names, _, err := s.Active.Read()
	if err != nil {
		return State{}, nil, err
	}
	active, warnings := filterInstalled(names, installed, "active plugins file")
	return State{Order: order, Active: active}, warnings, nil
}

type restamp struct {
	path    string
	current time.Time
	target  time.Time
}

// Write writes the active list, then re-stamps plugins so that reading
// them back yields s.Order.
//
// Every plugin's current time is read before any time is set. The base is
// the earliest of those times and plugin i gets base + i*TimestampInterval.
// Files already at their target are skipped, which cannot change the
// derived order because every file ends at its target either way. Writes
// run from the last plugin to the first.
//
// The active list goes first because it is replaced atomically: if it
// fails, no timestamp has been touched. The times read for the plan and
// the old active list are kept for Revert.
func (s *TimestampStore) Write(installed *plugin.Set, st State) error {
	s.undo = nil
	plan, err := s.plan(installed, st.Order)
	if err != nil {
		return err
	}
	backup, err := backupFile(s.Active.File())
	if err != nil {
		return err
	}
	s.undo = &timestampUndo{plan: plan, active: backup}

	if err := s.Active.Write(st.Active); err != nil {
		return err
	}

	changed := 0
	for i := len(plan) - 1; i >= 0; i-- {
		p := plan[i]
		if p.current.Equal(p.target) {
			continue
		}
		if err := os.Chtimes(p.path, p.target, p.target); err != nil {
			return status.PathError(status.TimestampWriteFail, "set modification time", p.path, err)
		}
		changed++
	}
	s.logger().Debug("restamped plugins", "changed", changed, "total", len(plan))
	return nil
}

// Revert sets every plugin the last Write planned to move back to the
// exact time it had before, then restores the old active list.
func (s *TimestampStore) Revert() error {
	u := s.undo
	s.undo = nil
	if u == nil {
		return nil
	}

	var firstErr error
	for _, p := range u.plan {
		if p.current.Equal(p.target) {
			continue
		}
		if err := os.Chtimes(p.path, p.current, p.current); err != nil && firstErr == nil {
			firstErr = status.PathError(status.TimestampWriteFail, "restore modification time", p.path, err)
		}
	}
	if err := u.active.restore(); err != nil && firstErr == nil {
		firstErr = err
	}
	s.logger().Debug("reverted restamp", "plugins", len(u.plan), "error", firstErr)
	return firstErr
}

func (s *TimestampStore) plan(installed *plugin.Set, order []string) ([]restamp, error) {
	plan := make([]restamp, 0, len(order))
	var base time.Time
	for _, name := range order {
		r, ok := installed.Get(name)
		if !ok {
			return nil, status.Errorf(status.FileNotFound, "plugin %q is not installed", name)
		}
		info, err := os.Stat(r.Path)
		if err != nil {
			return nil, status.PathError(status.TimestampReadFail, "read modification time", r.Path, err)
		}
		mt := info.ModTime()
		if base.IsZero() || mt.Before(base) {
			base = mt
		}
		plan = append(plan, restamp{path: r.Path, current: mt})
	}
	base = base.Truncate(time.Second)
	for i := range plan {
		plan[i].target = base.Add(time.Duration(i) * TimestampInterval)
	}
	return plan, nil
}
