package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/roach88/loadorder/internal/status"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readFile returns the content of path. A missing file is not an error:
// found is false and data is nil.
func readFile(path string) (data []byte, found bool, err error) {
	data, err = os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, status.PathError(status.FileReadFail, "read file", path, err)
	}
	return data, true, nil
}

// fileBackup is a file's content from before a write.
type fileBackup struct {
	path  string
	data  []byte
	found bool
}

func backupFile(path string) (fileBackup, error) {
	data, found, err := readFile(path)
	if err != nil {
		return fileBackup{}, err
	}
	return fileBackup{path: path, data: data, found: found}, nil
}

// restore puts the saved bytes back, or removes the file if it did not
// exist.
func (b fileBackup) restore() error {
	if !b.found {
		if err := os.Remove(b.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return status.PathError(status.FileWriteFail, "remove file", b.path, err)
		}
		return nil
	}
	return writeFileAtomic(b.path, b.data)
}

// readUTF8Lines reads a list file: one plugin name per line, UTF-8, with an
// optional byte order mark. Blank lines and lines starting with '#' are
// skipped; CRLF line endings are accepted.
func readUTF8Lines(path string) (lines []string, found bool, err error) {
	data, found, err := readFile(path)
	if err != nil || !found {
		return nil, found, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, true, status.PathError(status.FileNotUTF8, "file is not encoded in UTF-8", path, nil)
	}
	return splitLines(string(data)), true, nil
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines = append(lines, trimmed)
	}
	return lines
}

// joinLines renders names one per line with a trailing newline.
func joinLines(names []string) []byte {
	var b bytes.Buffer
	for _, n := range names {
		b.WriteString(n)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it over path. The temporary file is removed on failure.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return status.PathError(status.FileWriteFail, "create directory", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return status.PathError(status.FileWriteFail, "create temporary file", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return status.PathError(status.FileWriteFail, "write temporary file", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return status.PathError(status.FileWriteFail, "sync temporary file", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return status.PathError(status.FileWriteFail, "close temporary file", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		cleanup()
		return status.PathError(status.FileWriteFail, "set file mode", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return status.PathError(status.FileRenameFail, "replace file", path, err)
	}
	return nil
}
