package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loadorder/internal/game"
	"github.com/roach88/loadorder/internal/status"
	"github.com/roach88/loadorder/internal/testutil"
)

type textfileEnv struct {
	store *TextfileStore
	dir   string
}

func newTextfileEnv(t *testing.T, plugins ...string) textfileEnv {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "Data")
	testutil.NewFixture(t, dir).Master("Skyrim.esm").Plugin(plugins...)
	local := filepath.Join(root, "Local", "Skyrim")
	return textfileEnv{
		store: &TextfileStore{
			OrderFile: filepath.Join(local, "loadorder.txt"),
			Active:    &PluginsTxt{Path: filepath.Join(local, "plugins.txt")},
		},
		dir: dir,
	}
}

func TestTextfileStore_Method(t *testing.T) {
	assert.Equal(t, game.MethodTextfile, (&TextfileStore{}).Method())
}

func TestTextfileStore_SynchronizationRepair(t *testing.T) {
	env := newTextfileEnv(t, "A.esp", "B.esp", "C.esp")
	testutil.WriteLines(t, env.store.OrderFile, "Skyrim.esm", "A.esp", "B.esp")
	testutil.WriteLines(t, env.store.Active.File(), "B.esp", "C.esp")

	st, warnings, err := env.store.Read(scan(t, env.dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"Skyrim.esm", "A.esp", "B.esp", "C.esp"}, st.Order)
	assert.Equal(t, []string{"B.esp", "C.esp"}, st.Active)

	require.Len(t, warnings, 1)
	assert.Equal(t, status.LoadOrderMismatch, warnings[0].Code)
	assert.Equal(t, []string{"C.esp"}, warnings[0].Plugins)
	assert.Equal(t, status.LoadOrderMismatch, status.Highest(warnings))
}

func TestTextfileStore_DropsAbsentBeforeRepair(t *testing.T) {
	env := newTextfileEnv(t, "A.esp", "B.esp")
	testutil.WriteLines(t, env.store.OrderFile, "Skyrim.esm", "Gone.esp", "B.esp", "b.esp")
	testutil.WriteLines(t, env.store.Active.File(), "Gone.esp", "A.esp")

	st, warnings, err := env.store.Read(scan(t, env.dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"Skyrim.esm", "B.esp", "A.esp"}, st.Order)
	assert.Equal(t, []string{"A.esp"}, st.Active)

	var messages []string
	for _, w := range warnings {
		assert.Equal(t, status.LoadOrderMismatch, w.Code)
		messages = append(messages, w.Message)
	}
	assert.Equal(t, []string{
		"load order file lists plugins that are not installed",
		"load order file lists plugins more than once",
		"active plugins file lists plugins that are not installed",
		"active plugins are missing from the load order file",
	}, messages)
}

func TestTextfileStore_AppendsNewPluginsSilently(t *testing.T) {
	env := newTextfileEnv(t, "A.esp", "B.esp", "New.esp")
	testutil.WriteLines(t, env.store.OrderFile, "Skyrim.esm", "B.esp", "A.esp")

	st, warnings, err := env.store.Read(scan(t, env.dir))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"Skyrim.esm", "B.esp", "A.esp", "New.esp"}, st.Order)
	assert.Empty(t, st.Active)
}

func TestTextfileStore_MissingFiles(t *testing.T) {
	env := newTextfileEnv(t, "A.esp", "B.esp")

	st, warnings, err := env.store.Read(scan(t, env.dir))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"Skyrim.esm", "A.esp", "B.esp"}, st.Order)
	assert.Empty(t, st.Active)
}

func TestTextfileStore_CanonicalCase(t *testing.T) {
	env := newTextfileEnv(t, "Blank.esp")
	testutil.WriteLines(t, env.store.OrderFile, "skyrim.esm", "BLANK.ESP")
	testutil.WriteLines(t, env.store.Active.File(), "blank.esp")

	st, _, err := env.store.Read(scan(t, env.dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"Skyrim.esm", "Blank.esp"}, st.Order)
	assert.Equal(t, []string{"Blank.esp"}, st.Active)
}

func TestTextfileStore_NotUTF8(t *testing.T) {
	env := newTextfileEnv(t, "A.esp")
	require.NoError(t, os.MkdirAll(filepath.Dir(env.store.OrderFile), 0o755))
	require.NoError(t, os.WriteFile(env.store.OrderFile, []byte("Skyrim.esm\nCaf\xe9.esp\n"), 0o644))

	_, _, err := env.store.Read(scan(t, env.dir))
	require.Error(t, err)
	assert.True(t, status.Is(err, status.FileNotUTF8))

	// Also for the active list.
	require.NoError(t, os.WriteFile(env.store.OrderFile, []byte("Skyrim.esm\n"), 0o644))
	require.NoError(t, os.WriteFile(env.store.Active.File(), []byte("\xff\xfeA\x00"), 0o644))
	_, _, err = env.store.Read(scan(t, env.dir))
	assert.True(t, status.Is(err, status.FileNotUTF8))
}

func TestTextfileStore_RoundTrip(t *testing.T) {
	env := newTextfileEnv(t, "A.esp", "B.esp", "C.esp")
	set := scan(t, env.dir)

	want := State{
		Order:  []string{"Skyrim.esm", "C.esp", "A.esp", "B.esp"},
		Active: []string{"Skyrim.esm", "B.esp", "C.esp"},
	}
	require.NoError(t, env.store.Write(set, want))

	got, warnings, err := env.store.Read(set)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, want, got)

	assert.Equal(t, "Skyrim.esm\nC.esp\nA.esp\nB.esp\n", testutil.ReadFile(t, env.store.OrderFile))
	assert.Equal(t, "Skyrim.esm\nB.esp\nC.esp\n", testutil.ReadFile(t, env.store.Active.File()))
}

func TestTextfileStore_WriteSecondFileFails(t *testing.T) {
	env := newTextfileEnv(t, "A.esp")
	active := &failingActive{PluginsTxt: PluginsTxt{Path: env.store.Active.File()}, fail: 1}
	env.store.Active = active

	err := env.store.Write(scan(t, env.dir), State{Order: []string{"Skyrim.esm", "A.esp"}})
	require.Error(t, err)
	assert.True(t, status.Is(err, status.FileWriteFail))

	// The first file was written; Revert is responsible for restoring it.
	assert.Equal(t, "Skyrim.esm\nA.esp\n", testutil.ReadFile(t, env.store.OrderFile))
}

func TestTextfileStore_Revert(t *testing.T) {
	env := newTextfileEnv(t, "A.esp", "B.esp")
	set := scan(t, env.dir)
	require.NoError(t, env.store.Write(set, State{
		Order:  []string{"Skyrim.esm", "A.esp", "B.esp"},
		Active: []string{"Skyrim.esm", "A.esp"},
	}))
	orderBefore := testutil.ReadFile(t, env.store.OrderFile)
	activeBefore := testutil.ReadFile(t, env.store.Active.File())

	env.store.Active = &failingActive{PluginsTxt: PluginsTxt{Path: env.store.Active.File()}, fail: 1}
	err := env.store.Write(set, State{
		Order:  []string{"Skyrim.esm", "B.esp", "A.esp"},
		Active: []string{"Skyrim.esm", "B.esp"},
	})
	require.Error(t, err)
	require.NotEqual(t, orderBefore, testutil.ReadFile(t, env.store.OrderFile))

	require.NoError(t, env.store.Revert())
	assert.Equal(t, orderBefore, testutil.ReadFile(t, env.store.OrderFile))
	assert.Equal(t, activeBefore, testutil.ReadFile(t, env.store.Active.File()))

	// Nothing left to undo.
	require.NoError(t, env.store.Revert())
	assert.Equal(t, orderBefore, testutil.ReadFile(t, env.store.OrderFile))
}

func TestTextfileStore_RevertRemovesCreatedFiles(t *testing.T) {
	env := newTextfileEnv(t, "A.esp")
	env.store.Active = &failingActive{PluginsTxt: PluginsTxt{Path: env.store.Active.File()}, fail: 1}

	err := env.store.Write(scan(t, env.dir), State{Order: []string{"Skyrim.esm", "A.esp"}})
	require.Error(t, err)
	require.FileExists(t, env.store.OrderFile)

	require.NoError(t, env.store.Revert())
	assert.NoFileExists(t, env.store.OrderFile)
	assert.NoFileExists(t, env.store.Active.File())
}

func TestNew(t *testing.T) {
	paths := game.Paths{OrderFile: "loadorder.txt", ActiveFile: "plugins.txt"}
	active := &PluginsTxt{Path: paths.ActiveFile}

	s, err := New(game.MethodTimestamp, paths, active, nil)
	require.NoError(t, err)
	assert.IsType(t, &TimestampStore{}, s)

	s, err = New(game.MethodTextfile, paths, active, nil)
	require.NoError(t, err)
	assert.IsType(t, &TextfileStore{}, s)

	_, err = New(game.MethodTextfile, game.Paths{}, active, nil)
	assert.True(t, status.Is(err, status.InvalidArgs))

	_, err = New(game.Method(7), paths, active, nil)
	assert.True(t, status.Is(err, status.InvalidArgs))
}

func TestState_Clone(t *testing.T) {
	s := State{Order: []string{"A.esp"}, Active: []string{"A.esp"}}
	c := s.Clone()
	c.Order[0] = "B.esp"
	c.Active = append(c.Active, "B.esp")

	assert.Equal(t, []string{"A.esp"}, s.Order)
	assert.Equal(t, []string{"A.esp"}, s.Active)
}
