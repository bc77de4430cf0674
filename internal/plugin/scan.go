package plugin

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/loadorder/internal/status"
)

// Scanner builds a Set from a plugin directory.
type Scanner struct {
	Dir    string
	Format Format

	// Logger receives debug output about skipped files. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Scan lists the plugin directory and reads every plugin's header.
//
// Files whose header cannot be parsed are not plugins as far as the game is
// concerned and are skipped. Names that are not representable in
// Windows-1252 produce a BadFilename warning but are still returned.
// When both X.esp and X.esp.ghost exist, the unghosted file wins.
func (s *Scanner) Scan() (*Set, []status.Warning, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, status.PathError(status.FileNotFound, "plugin directory not found", s.Dir, err)
		}
		return nil, nil, status.PathError(status.FileReadFail, "list plugin directory", s.Dir, err)
	}

	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			present[Key(e.Name())] = true
		}
	}

	var records []Record
	var badNames []string
	for _, e := range entries {
		if e.IsDir() || !IsPluginFile(e.Name()) {
			continue
		}
		name, ghosted := TrimGhost(e.Name())
		if ghosted && present[Key(name)] {
			logger.Debug("ignoring ghosted duplicate", "file", e.Name())
			continue
		}

		path := filepath.Join(s.Dir, e.Name())
		info, err := e.Info()
		if err != nil {
			return nil, nil, status.PathError(status.TimestampReadFail, "stat plugin", path, err)
		}

		header, err := ReadHeader(path, s.Format)
		if err != nil {
			if status.Is(err, status.FileParseFail) {
				logger.Debug("skipping invalid plugin", "file", e.Name(), "error", err)
				continue
			}
			return nil, nil, err
		}

		r := Record{
			Name:    name,
			Master:  header.Master,
			ModTime: info.ModTime(),
			Ghosted: ghosted,
			Path:    path,
		}
		if !r.ValidName() {
			badNames = append(badNames, name)
		}
		records = append(records, r)
	}

	var warnings []status.Warning
	if len(badNames) > 0 {
		warnings = append(warnings, status.Warning{
			Code:    status.BadFilename,
			Message: "plugin filenames without Windows-1252 code points cannot be activated",
			Plugins: badNames,
		})
	}
	return NewSet(records...), warnings, nil
}
