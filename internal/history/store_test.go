package history

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loadorder/internal/testutil"
)

// createTestStore creates a journal with deterministic IDs and clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	clock := testutil.NewDeterministicClock()
	s, err := Open(path,
		WithIDGenerator(testutil.NewSequenceIDGenerator("snap")),
		WithClock(clock.Now),
	)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, s.Close())
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("user_version", "2"))
}

func TestClose_Nil(t *testing.T) {
	var s Store
	assert.NoError(t, s.Close())
}

func TestAppendAndGet(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	e, err := s.Append(ctx, Entry{
		Installation: "/games/skyrim/Data",
		Game:         3,
		Method:       "textfile",
		Operation:    "set_load_order",
		LoadOrder:    []string{"Skyrim.esm", "A.esp"},
		Active:       []string{"Skyrim.esm"},
	})
	require.NoError(t, err)
	assert.Equal(t, "snap-1", e.ID)
	assert.Equal(t, int64(1), e.Seq)
	assert.True(t, e.RecordedAt.Equal(testutil.Epoch))

	got, err := s.Get(ctx, "snap-1")
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, uint(3), got.Game)
	assert.Equal(t, "textfile", got.Method)
	assert.Equal(t, []string{"Skyrim.esm", "A.esp"}, got.LoadOrder)
	assert.Equal(t, []string{"Skyrim.esm"}, got.Active)
	assert.True(t, got.RecordedAt.Equal(testutil.Epoch))
	assert.Equal(t, StateDigest(got.LoadOrder, got.Active), got.Digest)
	assert.Equal(t, e.Digest, got.Digest)
}

func TestAppend_NilListsStoredEmpty(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, Entry{Installation: "x", Operation: "load"})
	require.NoError(t, err)

	got, err := s.Get(ctx, "snap-1")
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.LoadOrder)
	assert.Equal(t, []string{}, got.Active)
}

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestList_OrderAndLimit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, op := range []string{"a", "b", "c"} {
		_, err := s.Append(ctx, Entry{Installation: "one", Operation: op})
		require.NoError(t, err)
	}
	_, err := s.Append(ctx, Entry{Installation: "two", Operation: "other"})
	require.NoError(t, err)

	all, err := s.List(ctx, "one", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Operation)
	assert.Equal(t, "c", all[2].Operation)

	newest, err := s.List(ctx, "one", 2)
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, "b", newest[0].Operation)
	assert.Equal(t, "c", newest[1].Operation)

	none, err := s.List(ctx, "three", 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestLatest(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Latest(ctx, "one")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = s.Append(ctx, Entry{Installation: "one", Operation: "first"})
	require.NoError(t, err)
	_, err = s.Append(ctx, Entry{Installation: "one", Operation: "second"})
	require.NoError(t, err)

	latest, err := s.Latest(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, "second", latest.Operation)
}

func TestRecorder(t *testing.T) {
	s := createTestStore(t)
	r := &Recorder{Store: s, Installation: "inst", Game: 2, Method: "timestamp"}

	require.NoError(t, r.Record("activate", []string{"Oblivion.esm", "A.esp"}, []string{"A.esp"}))

	latest, err := s.Latest(context.Background(), "inst")
	require.NoError(t, err)
	assert.Equal(t, "activate", latest.Operation)
	assert.Equal(t, uint(2), latest.Game)
	assert.Equal(t, []string{"A.esp"}, latest.Active)
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestOpen_MigratesV1Database(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE entries (
			seq          INTEGER PRIMARY KEY AUTOINCREMENT,
			id           TEXT NOT NULL UNIQUE,
			installation TEXT NOT NULL,
			game         INTEGER NOT NULL,
			method       TEXT NOT NULL,
			operation    TEXT NOT NULL,
			load_order   TEXT NOT NULL,
			active       TEXT NOT NULL,
			recorded_at  TEXT NOT NULL
		);
		INSERT INTO entries (id, installation, game, method, operation, load_order, active, recorded_at)
		VALUES ('old-1', 'inst', 3, 'textfile', 'activate', '["Skyrim.esm","A.esp"]', '["Skyrim.esm"]', '2024-01-01T00:00:00Z');
		PRAGMA user_version = 1;
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.verifyPragma("user_version", "2"))
	got, err := s.Get(context.Background(), "old-1")
	require.NoError(t, err)
	assert.Equal(t, StateDigest([]string{"Skyrim.esm", "A.esp"}, []string{"Skyrim.esm"}), got.Digest)
}
