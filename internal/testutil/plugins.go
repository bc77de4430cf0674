package testutil

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// BaseTime is the modification time of the first plugin a Fixture writes.
var BaseTime = time.Date(2011, time.November, 11, 0, 0, 0, 0, time.UTC)

// TES4Header returns a minimal Oblivion/Skyrim/Fallout plugin header.
func TES4Header(master bool) []byte {
	buf := make([]byte, 24)
	copy(buf, "TES4")
	binary.LittleEndian.PutUint32(buf[4:], 0)
	if master {
		binary.LittleEndian.PutUint32(buf[8:], 1)
	}
	return buf
}

// TES3Header returns a minimal Morrowind plugin header.
func TES3Header(master bool) []byte {
	buf := make([]byte, 32)
	copy(buf, "TES3")
	copy(buf[16:], "HEDR")
	binary.LittleEndian.PutUint32(buf[20:], 300)
	if master {
		binary.LittleEndian.PutUint32(buf[28:], 1)
	}
	return buf
}

// WriteFile writes data to dir/name with the given modification time and
// returns the full path.
func WriteFile(t *testing.T, dir, name string, data []byte, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
	return path
}

// ModTime returns the modification time of dir/name.
func ModTime(t *testing.T, dir, name string) time.Time {
	t.Helper()
	info, err := os.Stat(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("stat %s: %v", name, err)
	}
	return info.ModTime()
}

// Fixture writes plugin files into a directory with ascending modification
// times, one minute apart, in the order they are added.
type Fixture struct {
	t    *testing.T
	Dir  string
	TES3 bool
	next time.Time
}

// NewFixture creates a fixture writing TES4-format plugins into dir.
func NewFixture(t *testing.T, dir string) *Fixture {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	return &Fixture{t: t, Dir: dir, next: BaseTime}
}

func (f *Fixture) header(master bool) []byte {
	if f.TES3 {
		return TES3Header(master)
	}
	return TES4Header(master)
}

// Master adds master plugins.
func (f *Fixture) Master(names ...string) *Fixture {
	for _, n := range names {
		f.add(n, f.header(true))
	}
	return f
}

// Plugin adds non-master plugins.
func (f *Fixture) Plugin(names ...string) *Fixture {
	for _, n := range names {
		f.add(n, f.header(false))
	}
	return f
}

// Invalid adds files with a plugin extension but no valid header.
func (f *Fixture) Invalid(names ...string) *Fixture {
	for _, n := range names {
		f.add(n, []byte("not a plugin"))
	}
	return f
}

func (f *Fixture) add(name string, data []byte) {
	f.t.Helper()
	WriteFile(f.t, f.Dir, name, data, f.next)
	f.next = f.next.Add(time.Minute)
}

// Touch sets the modification time of an existing file.
func (f *Fixture) Touch(name string, mtime time.Time) *Fixture {
	f.t.Helper()
	if err := os.Chtimes(filepath.Join(f.Dir, name), mtime, mtime); err != nil {
		f.t.Fatalf("chtimes %s: %v", name, err)
	}
	return f
}

// WriteLines writes a newline-terminated list file.
func WriteLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	var data []byte
	for _, l := range lines {
		data = append(data, l...)
		data = append(data, '\n')
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadFile returns the content of path, failing the test on error.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
