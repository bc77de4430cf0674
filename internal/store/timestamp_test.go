package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loadorder/internal/game"
	"github.com/roach88/loadorder/internal/status"
	"github.com/roach88/loadorder/internal/testutil"
)

func newTimestampStore(t *testing.T) (*TimestampStore, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "Data")
	testutil.NewFixture(t, dir).
		Master("Oblivion.esm").
		Plugin("A.esp", "B.esp", "C.esp")
	return &TimestampStore{Active: &PluginsTxt{Path: filepath.Join(root, "plugins.txt")}}, dir
}

func TestTimestampStore_Method(t *testing.T) {
	assert.Equal(t, game.MethodTimestamp, (&TimestampStore{}).Method())
}

func TestTimestampStore_Read(t *testing.T) {
	s, dir := newTimestampStore(t)
	testutil.WriteLines(t, s.Active.File(), "A.esp", "Missing.esp", "c.esp")

	st, warnings, err := s.Read(scan(t, dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"Oblivion.esm", "A.esp", "B.esp", "C.esp"}, st.Order)
	assert.Equal(t, []string{"A.esp", "C.esp"}, st.Active)

	require.Len(t, warnings, 1)
	assert.Equal(t, status.LoadOrderMismatch, warnings[0].Code)
	assert.Equal(t, []string{"Missing.esp"}, warnings[0].Plugins)
}

func TestTimestampStore_ReadDeterministic(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2012, 6, 1, 0, 0, 0, 0, time.UTC)
	testutil.WriteFile(t, root, "Z.esp", testutil.TES4Header(false), base)
	testutil.WriteFile(t, root, "M.esp", testutil.TES4Header(false), base.Add(time.Minute))
	testutil.WriteFile(t, root, "A.esp", testutil.TES4Header(false), base.Add(2*time.Minute))

	s := &TimestampStore{Active: &PluginsTxt{Path: filepath.Join(root, "plugins.txt")}}
	st, _, err := s.Read(scan(t, root))
	require.NoError(t, err)
	assert.Equal(t, []string{"Z.esp", "M.esp", "A.esp"}, st.Order)
}

func TestTimestampStore_WriteRoundTrip(t *testing.T) {
	s, dir := newTimestampStore(t)
	set := scan(t, dir)

	want := State{
		Order:  []string{"Oblivion.esm", "C.esp", "A.esp", "B.esp"},
		Active: []string{"C.esp", "A.esp"},
	}
	require.NoError(t, s.Write(set, want))

	got, warnings, err := s.Read(scan(t, dir))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, want, got)

	// Consecutive plugins are one interval apart, starting at the earliest time.
	for i, name := range want.Order {
		assert.True(t, testutil.ModTime(t, dir, name).Equal(testutil.BaseTime.Add(time.Duration(i)*TimestampInterval)), name)
	}
}

func TestTimestampStore_WriteSkipsUnchanged(t *testing.T) {
	s, dir := newTimestampStore(t)
	set := scan(t, dir)

	// Only C.esp's target differs from its current time.
	require.NoError(t, os.Chtimes(filepath.Join(dir, "C.esp"), testutil.BaseTime.Add(time.Hour), testutil.BaseTime.Add(time.Hour)))

	require.NoError(t, s.Write(set, State{Order: []string{"Oblivion.esm", "A.esp", "B.esp", "C.esp"}}))
	assert.True(t, testutil.ModTime(t, dir, "A.esp").Equal(testutil.BaseTime.Add(time.Minute)))
	assert.True(t, testutil.ModTime(t, dir, "C.esp").Equal(testutil.BaseTime.Add(3*time.Minute)))
}

func TestTimestampStore_WriteUsesCurrentTimes(t *testing.T) {
	s, dir := newTimestampStore(t)
	set := scan(t, dir)

	// Two writes with the same, now stale, scan must still yield the second order.
	require.NoError(t, s.Write(set, State{Order: []string{"Oblivion.esm", "C.esp", "B.esp", "A.esp"}}))
	require.NoError(t, s.Write(set, State{Order: []string{"Oblivion.esm", "A.esp", "C.esp", "B.esp"}}))

	got, _, err := s.Read(scan(t, dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"Oblivion.esm", "A.esp", "C.esp", "B.esp"}, got.Order)
}

func TestTimestampStore_WriteGhosted(t *testing.T) {
	root := t.TempDir()
	testutil.NewFixture(t, root).Master("Oblivion.esm").Plugin("A.esp", "Ghost.esp.ghost")
	s := &TimestampStore{Active: &PluginsTxt{Path: filepath.Join(root, "plugins.txt")}}

	require.NoError(t, s.Write(scan(t, root), State{Order: []string{"Oblivion.esm", "Ghost.esp", "A.esp"}}))

	got, _, err := s.Read(scan(t, root))
	require.NoError(t, err)
	assert.Equal(t, []string{"Oblivion.esm", "Ghost.esp", "A.esp"}, got.Order)
}

func TestTimestampStore_WriteMissingPlugin(t *testing.T) {
	s, dir := newTimestampStore(t)
	set := scan(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, "B.esp")))

	err := s.Write(set, State{Order: []string{"Oblivion.esm", "B.esp", "A.esp", "C.esp"}})
	require.Error(t, err)
	assert.True(t, status.Is(err, status.TimestampReadFail))

	// Nothing was re-stamped: every time is read before any is written.
	assert.True(t, testutil.ModTime(t, dir, "A.esp").Equal(testutil.BaseTime.Add(time.Minute)))
}

func TestTimestampStore_WriteUnknownPlugin(t *testing.T) {
	s, dir := newTimestampStore(t)

	err := s.Write(scan(t, dir), State{Order: []string{"Oblivion.esm", "Nope.esp"}})
	assert.True(t, status.Is(err, status.FileNotFound))
}

func TestTimestampStore_ActiveListFailureKeepsTimes(t *testing.T) {
	s, dir := newTimestampStore(t)
	s.Active = &failingActive{PluginsTxt: PluginsTxt{Path: s.Active.File()}, fail: 1}
	set := scan(t, dir)

	err := s.Write(set, State{Order: []string{"Oblivion.esm", "B.esp", "A.esp", "C.esp"}, Active: []string{"B.esp"}})
	require.Error(t, err)
	assert.True(t, status.Is(err, status.FileWriteFail))

	// The active list is written before any plugin is re-stamped.
	for i, name := range []string{"Oblivion.esm", "A.esp", "B.esp", "C.esp"} {
		assert.True(t, testutil.ModTime(t, dir, name).Equal(testutil.BaseTime.Add(time.Duration(i)*time.Minute)), name)
	}
	assert.NoFileExists(t, s.Active.File())
}

func TestTimestampStore_Revert(t *testing.T) {
	s, dir := newTimestampStore(t)
	testutil.WriteLines(t, s.Active.File(), "A.esp")
	// Off-grid times must come back exactly, not rounded to the interval.
	odd := testutil.BaseTime.Add(7*time.Minute + 13*time.Second + 500*time.Millisecond)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "C.esp"), odd, odd))

	before := map[string]time.Time{}
	for _, name := range []string{"Oblivion.esm", "A.esp", "B.esp", "C.esp"} {
		before[name] = testutil.ModTime(t, dir, name)
	}

	require.NoError(t, s.Write(scan(t, dir), State{
		Order:  []string{"Oblivion.esm", "C.esp", "B.esp", "A.esp"},
		Active: []string{"C.esp"},
	}))
	require.NoError(t, s.Revert())

	for name, mt := range before {
		assert.True(t, testutil.ModTime(t, dir, name).Equal(mt), name)
	}
	assert.Equal(t, "A.esp\n", testutil.ReadFile(t, s.Active.File()))

	got, _, err := s.Read(scan(t, dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"Oblivion.esm", "A.esp", "B.esp", "C.esp"}, got.Order)
}

func TestTimestampStore_RevertWithoutWrite(t *testing.T) {
	s, _ := newTimestampStore(t)
	assert.NoError(t, s.Revert())
}
