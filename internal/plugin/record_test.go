package plugin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_CaseInsensitive(t *testing.T) {
	assert.Equal(t, Key("Skyrim.esm"), Key("SKYRIM.ESM"))
	assert.Equal(t, Key("Café.esp"), Key("CAFÉ.ESP"))
	assert.True(t, EqualNames("blank.esp", "Blank.ESP"))
	assert.False(t, EqualNames("Blank.esp", "Blank.esm"))
}

func TestKey_NormalizesComposition(t *testing.T) {
	// "é" precomposed vs "e" + combining acute.
	assert.Equal(t, Key("Caf\u00e9.esp"), Key("Cafe\u0301.esp"))
}

func TestIsPluginFile(t *testing.T) {
	assert.True(t, IsPluginFile("Blank.esp"))
	assert.True(t, IsPluginFile("Blank.ESM"))
	assert.True(t, IsPluginFile("Blank.esp.ghost"))
	assert.True(t, IsPluginFile("Blank.esm.GHOST"))
	assert.False(t, IsPluginFile("Blank.bsa"))
	assert.False(t, IsPluginFile("Blank.ghost"))
	assert.False(t, IsPluginFile("esp"))
}

func TestTrimGhost(t *testing.T) {
	name, ghosted := TrimGhost("Blank.esp.ghost")
	assert.Equal(t, "Blank.esp", name)
	assert.True(t, ghosted)

	name, ghosted = TrimGhost("Blank.esp.Ghost")
	assert.Equal(t, "Blank.esp", name)
	assert.True(t, ghosted)

	name, ghosted = TrimGhost("Blank.esp")
	assert.Equal(t, "Blank.esp", name)
	assert.False(t, ghosted)

	name, ghosted = TrimGhost(".ghost")
	assert.Equal(t, ".ghost", name)
	assert.False(t, ghosted)
}

func TestSet_Lookup(t *testing.T) {
	s := NewSet(
		Record{Name: "Skyrim.esm", Master: true},
		Record{Name: "Blank.esp"},
		Record{Name: "BLANK.esp"},
	)

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has("skyrim.ESM"))
	assert.True(t, s.IsMaster("SKYRIM.esm"))
	assert.False(t, s.IsMaster("Blank.esp"))
	assert.False(t, s.IsMaster("Missing.esp"))

	name, ok := s.Canonical("blank.ESP")
	require.True(t, ok)
	assert.Equal(t, "Blank.esp", name)

	_, ok = s.Get("Missing.esp")
	assert.False(t, ok)
}

func TestSet_RecordsIsCopy(t *testing.T) {
	s := NewSet(Record{Name: "A.esp"})
	records := s.Records()
	records[0].Name = "Changed.esp"

	assert.True(t, s.Has("A.esp"))
	assert.False(t, s.Has("Changed.esp"))
}

func TestSet_ByTimestamp(t *testing.T) {
	base := time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSet(
		Record{Name: "C.esp", ModTime: base.Add(2 * time.Minute)},
		Record{Name: "b.esp", ModTime: base},
		Record{Name: "A.esp", ModTime: base},
		Record{Name: "D.esp", ModTime: base.Add(time.Minute)},
	)

	// Ties are broken by case-insensitive name.
	assert.Equal(t, []string{"A.esp", "b.esp", "D.esp", "C.esp"}, s.ByTimestamp())
}
