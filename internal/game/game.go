// Package game holds the fixed facts about each supported game: its code,
// how it persists load order, where its files live and which structural
// rules its engine enforces.
package game

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roach88/loadorder/internal/plugin"
	"github.com/roach88/loadorder/internal/status"
)

// Code identifies a supported game. Values are stable and shared with
// external callers.
type Code uint

const (
	TES3 Code = 1 // The Elder Scrolls III: Morrowind
	TES4 Code = 2 // The Elder Scrolls IV: Oblivion
	TES5 Code = 3 // The Elder Scrolls V: Skyrim
	FO3  Code = 4 // Fallout 3
	FNV  Code = 5 // Fallout: New Vegas
)

// Method is the load order persistence mechanism a game uses.
type Method uint

const (
	// MethodTimestamp derives load order from plugin modification times.
	// Morrowind, Oblivion, Fallout 3, Fallout: New Vegas and Skyrim before
	// v1.4.26 use it.
	MethodTimestamp Method = 0

	// MethodTextfile keeps load order in loadorder.txt and active plugins in
	// plugins.txt. Skyrim v1.4.26+ uses it.
	MethodTextfile Method = 1
)

func (m Method) String() string {
	switch m {
	case MethodTimestamp:
		return "timestamp"
	case MethodTextfile:
		return "textfile"
	default:
		return fmt.Sprintf("method(%d)", uint(m))
	}
}

// ParseMethod parses "timestamp" or "textfile".
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "timestamp":
		return MethodTimestamp, nil
	case "textfile":
		return MethodTextfile, nil
	default:
		return 0, status.Errorf(status.InvalidArgs, "unknown load order method %q", s)
	}
}

// ActiveList identifies the file format holding a game's active plugins.
type ActiveList int

const (
	// ActivePluginsTxt is a plain list in <local app data>/<game>/plugins.txt.
	ActivePluginsTxt ActiveList = iota

	// ActiveMorrowindIni is the [Game Files] section of Morrowind.ini.
	ActiveMorrowindIni
)

// DefaultMaxActive is the number of plugins the games can load at once.
const DefaultMaxActive = 255

// Settings describes one game.
type Settings struct {
	Code Code
	Name string

	// MasterFile is the game's own master plugin.
	MasterFile string

	// PluginsDir is the plugin directory relative to the game path.
	PluginsDir string

	// AppDataFolder is the folder under local app data holding plugins.txt
	// and loadorder.txt. Empty for games that keep them elsewhere.
	AppDataFolder string

	Format        plugin.Format
	DefaultMethod Method
	ActiveList    ActiveList

	// MaxActive is the active plugin ceiling.
	MaxActive int

	// MasterFirst is true if masters must load before every non-master.
	MasterFirst bool

	// ImplicitActive lists plugins the game loads whether or not they are
	// listed as active.
	ImplicitActive []string
}

var games = map[Code]Settings{
	TES3: {
		Code:          TES3,
		Name:          "Morrowind",
		MasterFile:    "Morrowind.esm",
		PluginsDir:    "Data Files",
		Format:        plugin.FormatTES3,
		DefaultMethod: MethodTimestamp,
		ActiveList:    ActiveMorrowindIni,
		MaxActive:     DefaultMaxActive,
		MasterFirst:   true,
	},
	TES4: {
		Code:          TES4,
		Name:          "Oblivion",
		MasterFile:    "Oblivion.esm",
		PluginsDir:    "Data",
		AppDataFolder: "Oblivion",
		Format:        plugin.FormatTES4,
		DefaultMethod: MethodTimestamp,
		MaxActive:     DefaultMaxActive,
		MasterFirst:   true,
	},
	TES5: {
		Code:           TES5,
		Name:           "Skyrim",
		MasterFile:     "Skyrim.esm",
		PluginsDir:     "Data",
		AppDataFolder:  "Skyrim",
		Format:         plugin.FormatTES4,
		DefaultMethod:  MethodTextfile,
		MaxActive:      DefaultMaxActive,
		MasterFirst:    true,
		ImplicitActive: []string{"Skyrim.esm", "Update.esm"},
	},
	FO3: {
		Code:          FO3,
		Name:          "Fallout 3",
		MasterFile:    "Fallout3.esm",
		PluginsDir:    "Data",
		AppDataFolder: "Fallout3",
		Format:        plugin.FormatTES4,
		DefaultMethod: MethodTimestamp,
		MaxActive:     DefaultMaxActive,
		MasterFirst:   true,
	},
	FNV: {
		Code:          FNV,
		Name:          "Fallout: New Vegas",
		MasterFile:    "FalloutNV.esm",
		PluginsDir:    "Data",
		AppDataFolder: "FalloutNV",
		Format:        plugin.FormatTES4,
		DefaultMethod: MethodTimestamp,
		MaxActive:     DefaultMaxActive,
		MasterFirst:   true,
	},
}

// Lookup returns the settings for a game code.
// The returned value is a copy; callers may adjust it.
func Lookup(code Code) (Settings, error) {
	s, ok := games[code]
	if !ok {
		return Settings{}, status.Errorf(status.InvalidArgs, "unknown game code %d", uint(code))
	}
	s.ImplicitActive = append([]string(nil), s.ImplicitActive...)
	return s, nil
}

// Codes returns every supported game code in ascending order.
func Codes() []Code {
	return []Code{TES3, TES4, TES5, FO3, FNV}
}

var codeAliases = map[string]Code{
	"tes3":      TES3,
	"morrowind": TES3,
	"tes4":      TES4,
	"oblivion":  TES4,
	"tes5":      TES5,
	"skyrim":    TES5,
	"fo3":       FO3,
	"fallout3":  FO3,
	"fnv":       FNV,
	"falloutnv": FNV,
}

// ParseCode accepts a short code ("tes5"), a game name ("skyrim") or the
// numeric code ("3").
func ParseCode(s string) (Code, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if c, ok := codeAliases[key]; ok {
		return c, nil
	}
	for _, c := range Codes() {
		if key == fmt.Sprintf("%d", uint(c)) {
			return c, nil
		}
	}
	return 0, status.Errorf(status.InvalidArgs, "unknown game %q", s)
}

func (c Code) String() string {
	if s, ok := games[c]; ok {
		return s.Name
	}
	return fmt.Sprintf("game(%d)", uint(c))
}

// Paths are the filesystem locations a game handle works with.
type Paths struct {
	// PluginsDir is the directory scanned for plugins.
	PluginsDir string

	// ActiveFile holds the active plugin list.
	ActiveFile string

	// OrderFile holds the full load order. Only used by MethodTextfile.
	OrderFile string
}

// Resolve computes a game's paths from the game install path and the local
// application data path.
func (s Settings) Resolve(gamePath, localPath string) Paths {
	p := Paths{PluginsDir: filepath.Join(gamePath, s.PluginsDir)}
	switch s.ActiveList {
	case ActiveMorrowindIni:
		p.ActiveFile = filepath.Join(gamePath, "Morrowind.ini")
	default:
		p.ActiveFile = filepath.Join(localPath, s.AppDataFolder, "plugins.txt")
	}
	if s.AppDataFolder != "" {
		p.OrderFile = filepath.Join(localPath, s.AppDataFolder, "loadorder.txt")
	}
	return p
}

// IsImplicitActive reports whether name is always loaded by the game.
func (s Settings) IsImplicitActive(name string) bool {
	for _, n := range s.ImplicitActive {
		if plugin.EqualNames(n, name) {
			return true
		}
	}
	return false
}
