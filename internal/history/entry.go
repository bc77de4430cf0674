package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when an entry ID does not exist.
var ErrNotFound = errors.New("history entry not found")

// Entry is one committed load order.
type Entry struct {
	Seq          int64     `json:"seq"`
	ID           string    `json:"id"`
	Installation string    `json:"installation"`
	Game         uint      `json:"game"`
	Method       string    `json:"method"`
	Operation    string    `json:"operation"`
	LoadOrder    []string  `json:"load_order"`
	Active       []string  `json:"active"`
	RecordedAt   time.Time `json:"recorded_at"`

	// Digest identifies the state by content; see StateDigest.
	Digest string `json:"digest"`
}

// Append inserts an entry, assigning its ID, Seq, RecordedAt and Digest.
// The stored entry is returned.
func (s *Store) Append(ctx context.Context, e Entry) (Entry, error) {
	e.ID = s.ids.Generate()
	e.RecordedAt = s.clock().UTC()
	e.Digest = StateDigest(e.LoadOrder, e.Active)

	order, err := marshalNames(e.LoadOrder)
	if err != nil {
		return Entry{}, fmt.Errorf("append entry: %w", err)
	}
	active, err := marshalNames(e.Active)
	if err != nil {
		return Entry{}, fmt.Errorf("append entry: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO entries
		(id, installation, game, method, operation, load_order, active, recorded_at, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Installation,
		e.Game,
		e.Method,
		e.Operation,
		order,
		active,
		e.RecordedAt.Format(time.RFC3339Nano),
		e.Digest,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("append entry: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("append entry: last insert id: %w", err)
	}
	e.Seq = seq
	return e, nil
}

// List returns the entries of an installation, oldest first.
// A limit of zero or less returns every entry; otherwise only the newest
// limit entries are returned, still oldest first.
//
// Returns an empty slice (not nil) if there are no entries.
func (s *Store) List(ctx context.Context, installation string, limit int) ([]Entry, error) {
	query := `
		SELECT seq, id, installation, game, method, operation, load_order, active, recorded_at, digest
		FROM entries
		WHERE installation = ?
		ORDER BY seq DESC
	`
	args := []any{installation}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	// Reverse into ascending seq order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Get returns the entry with the given ID.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, installation, game, method, operation, load_order, active, recorded_at, digest
		FROM entries
		WHERE id = ?
	`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

// Latest returns the most recent entry of an installation.
func (s *Store) Latest(ctx context.Context, installation string) (Entry, error) {
	entries, err := s.List(ctx, installation, 1)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, fmt.Errorf("%w: no entries for %s", ErrNotFound, installation)
	}
	return entries[0], nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e          Entry
		order      string
		active     string
		recordedAt string
	)
	if err := row.Scan(&e.Seq, &e.ID, &e.Installation, &e.Game, &e.Method, &e.Operation, &order, &active, &recordedAt, &e.Digest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	if err := json.Unmarshal([]byte(order), &e.LoadOrder); err != nil {
		return Entry{}, fmt.Errorf("decode load order of %s: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(active), &e.Active); err != nil {
		return Entry{}, fmt.Errorf("decode active plugins of %s: %w", e.ID, err)
	}
	t, err := time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("decode recorded_at of %s: %w", e.ID, err)
	}
	e.RecordedAt = t
	return e, nil
}

func marshalNames(names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	data, err := json.Marshal(names)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Recorder journals commits of one installation. It satisfies the engine's
// recorder interface.
type Recorder struct {
	Store        *Store
	Installation string
	Game         uint
	Method       string
}

// Record appends an entry for a committed state.
func (r *Recorder) Record(operation string, order, active []string) error {
	_, err := r.Store.Append(context.Background(), Entry{
		Installation: r.Installation,
		Game:         r.Game,
		Method:       r.Method,
		Operation:    operation,
		LoadOrder:    order,
		Active:       active,
	})
	return err
}
