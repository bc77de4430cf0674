package engine

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loadorder/internal/game"
	"github.com/roach88/loadorder/internal/plugin"
	"github.com/roach88/loadorder/internal/status"
	"github.com/roach88/loadorder/internal/store"
	"github.com/roach88/loadorder/internal/testutil"
	"github.com/roach88/loadorder/internal/validate"
)

// memStore is an OrderStore whose writes and reverts can be made to fail.
// A revert is recorded in writes as the state it puts back.
type memStore struct {
	state    store.State
	prev     store.State
	writes   []store.State
	failNext int
	err      error
}

func (m *memStore) Method() game.Method { return game.MethodTextfile }

func (m *memStore) Read(installed *plugin.Set) (store.State, []status.Warning, error) {
	if m.state.Order == nil {
		m.state.Order = installed.ByTimestamp()
	}
	return m.state.Clone(), nil, nil
}

func (m *memStore) Write(_ *plugin.Set, s store.State) error {
	m.prev = m.state.Clone()
	m.writes = append(m.writes, s.Clone())
	if m.failNext > 0 {
		m.failNext--
		return m.err
	}
	m.state = s.Clone()
	return nil
}

func (m *memStore) Revert() error {
	m.writes = append(m.writes, m.prev.Clone())
	if m.failNext > 0 {
		m.failNext--
		return m.err
	}
	m.state = m.prev.Clone()
	return nil
}

// failingActive is a plugins.txt whose next fail writes return an error.
type failingActive struct {
	store.PluginsTxt
	fail int
}

func (f *failingActive) Write(names []string) error {
	if f.fail > 0 {
		f.fail--
		return status.PathError(status.FileWriteFail, "write file", f.Path, errors.New("disk full"))
	}
	return f.PluginsTxt.Write(names)
}

type recordedState struct {
	op     string
	order  []string
	active []string
}

type fakeRecorder struct {
	entries []recordedState
	err     error
}

func (r *fakeRecorder) Record(op string, order, active []string) error {
	r.entries = append(r.entries, recordedState{op: op, order: order, active: active})
	return r.err
}

func newMemEngine(t *testing.T, opts ...Option) (*Engine, *memStore) {
	t.Helper()
	dir := t.TempDir()
	testutil.NewFixture(t, dir).Master("Skyrim.esm").Plugin("A.esp", "B.esp")
	ms := &memStore{err: status.PathError(status.FileWriteFail, "disk full", filepath.Join(dir, "plugins.txt"), nil)}
	e := New(&plugin.Scanner{Dir: dir}, ms, validate.Rules{MasterFirst: true, MaxActive: 255}, opts...)
	_, err := e.Load()
	require.NoError(t, err)
	return e, ms
}

func TestMutate_PersistFailureRestoresSnapshot(t *testing.T) {
	e, ms := newMemEngine(t)
	_, err := e.Activate("A.esp")
	require.NoError(t, err)
	ms.writes = nil
	ms.failNext = 1

	_, err = e.Activate("B.esp")
	require.Error(t, err)
	assert.Equal(t, status.FileWriteFail, status.CodeOf(err))
	assert.False(t, IsRollbackError(err))

	active, _ := e.ActivePlugins()
	assert.Equal(t, []string{"A.esp"}, active)

	require.Len(t, ms.writes, 2)
	assert.Equal(t, []string{"A.esp", "B.esp"}, ms.writes[0].Active)
	assert.Equal(t, []string{"A.esp"}, ms.writes[1].Active, "previous state put back")
	assert.Equal(t, []string{"A.esp"}, ms.state.Active)
}

func TestMutate_RollbackFailure(t *testing.T) {
	e, ms := newMemEngine(t)
	ms.failNext = 2

	_, err := e.MovePlugin("B.esp", 1)
	require.Error(t, err)
	assert.True(t, IsRollbackError(err))
	assert.Equal(t, status.FileWriteFail, status.CodeOf(err))

	var re *RollbackError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, OpMovePlugin, re.Operation)
	assert.Contains(t, err.Error(), "rollback failed")

	order, _ := e.LoadOrder()
	assert.Equal(t, []string{"Skyrim.esm", "A.esp", "B.esp"}, order)
}

func TestMutate_ValidationFailureWritesNothing(t *testing.T) {
	e, ms := newMemEngine(t)
	_, err := e.SetLoadOrder([]string{"A.esp", "Skyrim.esm", "B.esp"})
	require.Error(t, err)
	assert.Empty(t, ms.writes)
}

func TestMutate_Recorder(t *testing.T) {
	rec := &fakeRecorder{}
	e, _ := newMemEngine(t, WithRecorder(rec))

	_, err := e.Activate("B.esp")
	require.NoError(t, err)
	_, err = e.SetLoadOrder([]string{"Skyrim.esm", "B.esp"})
	require.NoError(t, err)

	require.Len(t, rec.entries, 2)
	assert.Equal(t, OpActivate, rec.entries[0].op)
	assert.Equal(t, []string{"B.esp"}, rec.entries[0].active)
	assert.Equal(t, OpSetLoadOrder, rec.entries[1].op)
	assert.Equal(t, []string{"Skyrim.esm", "B.esp", "A.esp"}, rec.entries[1].order)
}

func TestMutate_RecorderFailureIsNotReturned(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("journal closed")}
	e, _ := newMemEngine(t, WithRecorder(rec))

	_, err := e.Activate("A.esp")
	require.NoError(t, err)
	active, _ := e.ActivePlugins()
	assert.Equal(t, []string{"A.esp"}, active)
}

func TestMutate_FailedCallIsNotRecorded(t *testing.T) {
	rec := &fakeRecorder{}
	e, ms := newMemEngine(t, WithRecorder(rec))
	ms.failNext = 1

	_, err := e.Activate("A.esp")
	require.Error(t, err)
	assert.Empty(t, rec.entries)
}

func TestSetState_SkipsUninstalled(t *testing.T) {
	e, ms := newMemEngine(t)

	warnings, err := e.SetState([]string{"Skyrim.esm", "B.esp", "Gone.esp", "A.esp"}, []string{"Gone.esp", "A.esp"})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"Gone.esp"}, warnings[0].Plugins)

	assert.Equal(t, []string{"Skyrim.esm", "B.esp", "A.esp"}, ms.state.Order)
	assert.Equal(t, []string{"A.esp"}, ms.state.Active)
}

func TestAudit_ReportsWithoutChangingState(t *testing.T) {
	e, ms := newMemEngine(t)
	ms.state = store.State{Order: []string{"A.esp", "Skyrim.esm", "B.esp"}, Active: []string{"B.esp"}}

	warnings, violations, err := e.Audit()
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, violations, 1)
	assert.Equal(t, status.InvalidArgs, violations[0].Code)
	assert.Contains(t, violations[0].Message, "Skyrim.esm")

	order, _ := e.LoadOrder()
	assert.Equal(t, []string{"Skyrim.esm", "A.esp", "B.esp"}, order)
	assert.Empty(t, ms.writes)
}
