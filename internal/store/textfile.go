package store

import (
	"log/slog"

	"github.com/roach88/loadorder/internal/game"
	"github.com/roach88/loadorder/internal/plugin"
	"github.com/roach88/loadorder/internal/status"
)

// TextfileStore keeps the full load order in a text file, one plugin per
// line, next to the active list.
type TextfileStore struct {
	OrderFile string
	Active    ActiveList
	Logger    *slog.Logger

	undo []fileBackup
}

func (s *TextfileStore) Method() game.Method { return game.MethodTextfile }

func (s *TextfileStore) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Read parses both files and repairs them against each other and against
// the installed plugins. Repairs happen in this order:
//
//  1. names that are not installed are dropped from both lists
//  2. repeated names are dropped from both lists
//  3. active plugins missing from the load order are appended to it
//  4. installed plugins missing from both files are appended in
//     timestamp order
//
// Steps 1-3 produce mismatch warnings; step 4 is how newly installed
// plugins enter the load order and is silent. A missing load order file
// starts from the timestamp order. A file that is not valid UTF-8 aborts
// the read.
func (s *TextfileStore) Read(installed *plugin.Set) (State, []status.Warning, error) {
	lines, found, err := readUTF8Lines(s.OrderFile)
	if err != nil {
		return State{}, nil, err
	}
	activeLines, _, err := s.Active.Read()
	if err != nil {
		return State{}, nil, err
	}

	var warnings []status.Warning
	var order []string
	if found {
		var w []status.Warning
		order, w = filterInstalled(lines, installed, "load order file")
		warnings = append(warnings, w...)
	} else {
		s.logger().Debug("load order file missing, using timestamps", "path", s.OrderFile)
		order = installed.ByTimestamp()
	}

	active, w := filterInstalled(activeLines, installed, "active plugins file")
	warnings = append(warnings, w...)

	inOrder := keySet(order)
	var unordered []string
	for _, name := range active {
		if !inOrder[plugin.Key(name)] {
			unordered = append(unordered, name)
			inOrder[plugin.Key(name)] = true
		}
	}
	if len(unordered) > 0 {
		order = append(order, unordered...)
		warnings = append(warnings, status.Mismatch("active plugins are missing from the load order file", unordered...))
	}

	for _, name := range installed.ByTimestamp() {
		if !inOrder[plugin.Key(name)] {
			order = append(order, name)
			inOrder[plugin.Key(name)] = true
		}
	}

	return State{Order: order, Active: active}, warnings, nil
}

// Write replaces the load order file, then the active list. Both files
// are backed up first for Revert.
func (s *TextfileStore) Write(_ *plugin.Set, st State) error {
	s.undo = nil
	for _, path := range []string{s.OrderFile, s.Active.File()} {
		b, err := backupFile(path)
		if err != nil {
			return err
		}
		s.undo = append(s.undo, b)
	}

	if err := writeFileAtomic(s.OrderFile, joinLines(st.Order)); err != nil {
		return err
	}
	s.logger().Debug("wrote load order file", "path", s.OrderFile, "plugins", len(st.Order))

	if err := s.Active.Write(st.Active); err != nil {
		return err
	}
	s.logger().Debug("wrote active plugins file", "path", s.Active.File(), "plugins", len(st.Active))
	return nil
}

// Revert restores both files byte for byte from the backups taken by the
// last Write, the active list first.
func (s *TextfileStore) Revert() error {
	backups := s.undo
	s.undo = nil

	var firstErr error
	for i := len(backups) - 1; i >= 0; i-- {
		if err := backups[i].restore(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if len(backups) > 0 {
		s.logger().Debug("reverted load order files", "path", s.OrderFile, "error", firstErr)
	}
	return firstErr
}
