package store

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/roach88/loadorder/internal/status"
)

// ActiveList is a file holding the active plugin names.
type ActiveList interface {
	// File returns the path of the backing file.
	File() string

	// Read returns the listed names in file order. A missing file yields
	// found=false and no error.
	Read() (names []string, found bool, err error)

	// Write replaces the list, keeping the given order.
	Write(names []string) error
}

// PluginsTxt is a UTF-8 list file with one plugin name per line.
type PluginsTxt struct {
	Path string
}

func (p *PluginsTxt) File() string { return p.Path }

func (p *PluginsTxt) Read() ([]string, bool, error) {
	return readUTF8Lines(p.Path)
}

func (p *PluginsTxt) Write(names []string) error {
	return writeFileAtomic(p.Path, joinLines(names))
}

const gameFilesSection = "[game files]"

// MorrowindIni keeps active plugins in the [Game Files] section of
// Morrowind.ini as GameFile0=..., GameFile1=... The file is
// Windows-1252 encoded; everything outside the section is preserved on
// write.
type MorrowindIni struct {
	Path string
}

func (m *MorrowindIni) File() string { return m.Path }

func (m *MorrowindIni) Read() ([]string, bool, error) {
	lines, found, err := m.readLines()
	if err != nil || !found {
		return nil, found, err
	}

	type entry struct {
		index int
		name  string
	}
	var entries []entry
	start, end := findSection(lines)
	if start < 0 {
		return nil, true, nil
	}
	for _, line := range lines[start+1 : end] {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if len(key) <= len("GameFile") || !strings.EqualFold(key[:len("GameFile")], "GameFile") {
			continue
		}
		idx, err := strconv.Atoi(key[len("GameFile"):])
		if err != nil {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		entries = append(entries, entry{index: idx, name: value})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].index < entries[j].index })

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names, true, nil
}

func (m *MorrowindIni) Write(names []string) error {
	lines, _, err := m.readLines()
	if err != nil {
		return err
	}

	section := []string{"[Game Files]"}
	for i, n := range names {
		section = append(section, fmt.Sprintf("GameFile%d=%s", i, n))
	}

	var out []string
	start, end := findSection(lines)
	if start < 0 {
		out = append(out, lines...)
		if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
			out = append(out, "")
		}
		out = append(out, section...)
	} else {
		out = append(out, lines[:start]...)
		out = append(out, section...)
		out = append(out, lines[end:]...)
	}

	text := strings.Join(out, "\r\n") + "\r\n"
	data, err := charmap.Windows1252.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return status.PathError(status.FileWriteFail, "encode Morrowind.ini", m.Path, err)
	}
	return writeFileAtomic(m.Path, data)
}

// readLines decodes the ini file and splits it into lines without line
// terminators. Trailing blank lines are dropped.
func (m *MorrowindIni) readLines() ([]string, bool, error) {
	data, found, err := readFile(m.Path)
	if err != nil || !found {
		return nil, found, err
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, true, status.PathError(status.FileParseFail, "decode Morrowind.ini", m.Path, err)
	}
	decoded = bytes.ReplaceAll(decoded, []byte("\r\n"), []byte("\n"))
	lines := strings.Split(string(decoded), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, true, nil
}

// findSection returns the index of the [Game Files] header and the index
// just past the section's last non-blank line. start is -1 if there is no
// section.
func findSection(lines []string) (start, end int) {
	start = -1
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if start < 0 {
			if strings.EqualFold(t, gameFilesSection) {
				start = i
			}
			continue
		}
		if strings.HasPrefix(t, "[") {
			return start, trimTrailingBlank(lines, start, i)
		}
	}
	if start < 0 {
		return -1, -1
	}
	return start, trimTrailingBlank(lines, start, len(lines))
}

// trimTrailingBlank returns the index just past the last non-blank line of
// lines[start+1:next], so blank separators before the next section are not
// treated as section content.
func trimTrailingBlank(lines []string, start, next int) int {
	end := next
	for end > start+1 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return end
}
