package plugin

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// GhostExtension marks a plugin the game should not see. Ghosted plugins
// still take part in the load order under their unghosted name.
const GhostExtension = ".ghost"

// Record describes one plugin file found by a scan.
type Record struct {
	// Name is the case-preserved filename without directory and without
	// any ghost extension.
	Name string

	// Master is true if the plugin's header sets the master flag.
	Master bool

	// ModTime is the file's last modification time.
	ModTime time.Time

	// Ghosted is true if the file on disk carries the ghost extension.
	Ghosted bool

	// Path is the file's full path on disk.
	Path string
}

// ValidName reports whether the name is representable in Windows-1252.
func (r Record) ValidName() bool {
	return Encodable(r.Name)
}

// Key returns the comparison key for a plugin name: NFC-normalised and
// case-folded.
func Key(name string) string {
	return cases.Fold().String(norm.NFC.String(name))
}

// EqualNames reports whether two plugin names refer to the same plugin.
func EqualNames(a, b string) bool {
	return Key(a) == Key(b)
}

// IsPluginFile reports whether a filename has a plugin extension, with or
// without the ghost extension.
func IsPluginFile(filename string) bool {
	lower := strings.ToLower(filename)
	lower = strings.TrimSuffix(lower, GhostExtension)
	return strings.HasSuffix(lower, ".esm") || strings.HasSuffix(lower, ".esp")
}

// TrimGhost strips the ghost extension and reports whether it was present.
func TrimGhost(filename string) (string, bool) {
	if len(filename) > len(GhostExtension) &&
		strings.EqualFold(filename[len(filename)-len(GhostExtension):], GhostExtension) {
		return filename[:len(filename)-len(GhostExtension)], true
	}
	return filename, false
}

// Set holds the records of one scan, indexed by Key.
type Set struct {
	records []Record
	index   map[string]int
}

// NewSet builds a Set. Later records with a duplicate key are ignored.
func NewSet(records ...Record) *Set {
	s := &Set{index: make(map[string]int, len(records))}
	for _, r := range records {
		k := Key(r.Name)
		if _, dup := s.index[k]; dup {
			continue
		}
		s.index[k] = len(s.records)
		s.records = append(s.records, r)
	}
	return s
}

// Len returns the number of plugins.
func (s *Set) Len() int {
	return len(s.records)
}

// Get returns the record for name.
func (s *Set) Get(name string) (Record, bool) {
	i, ok := s.index[Key(name)]
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

// Has reports whether name is installed.
func (s *Set) Has(name string) bool {
	_, ok := s.index[Key(name)]
	return ok
}

// IsMaster reports whether name is an installed master.
func (s *Set) IsMaster(name string) bool {
	r, ok := s.Get(name)
	return ok && r.Master
}

// Canonical returns the on-disk spelling of name.
func (s *Set) Canonical(name string) (string, bool) {
	r, ok := s.Get(name)
	if !ok {
		return "", false
	}
	return r.Name, true
}

// Records returns a copy of the records in scan order.
func (s *Set) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// ByTimestamp returns plugin names sorted by (ModTime, Key). The Key
// tie-break gives a total order whatever order the directory listed files in.
func (s *Set) ByTimestamp() []string {
	records := s.Records()
	SortByTimestamp(records)
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	return names
}

// SortByTimestamp sorts records by (ModTime, Key) in place.
func SortByTimestamp(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].ModTime.Equal(records[j].ModTime) {
			return records[i].ModTime.Before(records[j].ModTime)
		}
		return Key(records[i].Name) < Key(records[j].Name)
	})
}
