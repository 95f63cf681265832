// Package durable provides crash-durable local persistence for the wayfarer
// client: the serialized store snapshots and the pending-mutation log, both
// restored at startup before any network call is attempted.
//
// Uses SQLite with WAL mode. The mutation log is append-only FIFO; entries
// are removed only after a confirmed successful replay.
package durable

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wayfarerhq/wayfarer/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// Snapshot keys used by the client.
const (
	SnapshotPlaces = "places"
	SnapshotTrips  = "trips"
)

// Mutation kinds stored in the log. Only visit creation is replayable from
// the log; every other mutation kind is rolled back when the server cannot
// be reached.
const (
	KindCreateVisit = "create_visit"
)

// Attachment is an opaque binary blob stored alongside a mutation.
type Attachment struct {
	Name string
	Data []byte
}

// Mutation is one durable log entry: everything needed to replay the
// mutation after a process restart, with no dependency on in-memory state.
type Mutation struct {
	TempID      string
	Kind        string
	Payload     []byte // serialized replay payload: target entity snapshot plus mutation body
	Attachments []Attachment
	CreatedAt   time.Time
}

// Store is the SQLite-backed durable store.
type Store struct {
	db *sql.DB
}

// Open creates or opens the durable store at the given path.
// Use ":memory:" for an in-memory database in tests.
//
// The database is configured with WAL mode for crash recovery, a busy
// timeout for lock contention, and foreign key enforcement. SQLite supports
// one writer at a time, so the connection pool is capped at one.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, errors.WrapStorage("open", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.WrapStorage("open", path, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, errors.WrapStorage("open", path, fmt.Errorf("applying schema: %w", err))
	}

	// The in-flight mark is re-entrancy state for a single process. A crash
	// between claim and removal would otherwise hide the entry from every
	// future drain.
	if _, err := db.Exec(`UPDATE mutations SET in_flight = 0 WHERE in_flight = 1`); err != nil {
		db.Close()
		return nil, errors.WrapStorage("open", path, fmt.Errorf("resetting in-flight marks: %w", err))
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSnapshot stores a serialized store snapshot under the given key,
// replacing any previous snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, key string, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (key, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, payload, time.Now().UTC().Format(time.RFC3339Nano))
	return errors.WrapStorage("write", key, err)
}

// LoadSnapshot returns the serialized snapshot stored under the given key,
// or ErrNotFound if none exists.
func (s *Store) LoadSnapshot(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE key = ?`, key).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.WrapStorage("read", key, err)
	}
	return payload, nil
}

// Enqueue appends a mutation and its attachments to the log in one
// transaction.
func (s *Store) Enqueue(ctx context.Context, m Mutation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapStorage("write", m.TempID, err)
	}
	defer tx.Rollback()

	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO mutations (temp_id, kind, payload, created_at) VALUES (?, ?, ?, ?)`,
		m.TempID, m.Kind, m.Payload, createdAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return errors.WrapStorage("write", m.TempID, err)
	}

	for _, a := range m.Attachments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO attachments (temp_id, name, data) VALUES (?, ?, ?)`,
			m.TempID, a.Name, a.Data); err != nil {
			return errors.WrapStorage("write", m.TempID, err)
		}
	}

	return errors.WrapStorage("write", m.TempID, tx.Commit())
}

// Drain returns all queued mutations in enqueue (FIFO) order, skipping
// entries currently marked in flight.
func (s *Store) Drain(ctx context.Context) ([]Mutation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT temp_id, kind, payload, created_at FROM mutations
		 WHERE in_flight = 0 ORDER BY seq ASC`)
	if err != nil {
		return nil, errors.WrapStorage("read", "mutations", err)
	}
	defer rows.Close()

	var mutations []Mutation
	for rows.Next() {
		var m Mutation
		var createdAt string
		if err := rows.Scan(&m.TempID, &m.Kind, &m.Payload, &createdAt); err != nil {
			return nil, errors.WrapStorage("read", "mutations", err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		mutations = append(mutations, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStorage("read", "mutations", err)
	}

	for i := range mutations {
		attachments, err := s.loadAttachments(ctx, mutations[i].TempID)
		if err != nil {
			return nil, err
		}
		mutations[i].Attachments = attachments
	}

	return mutations, nil
}

// MarkInFlight marks a mutation as being replayed. Reports false if the
// mutation is already in flight or no longer exists, which makes concurrent
// drains idempotent: the second drain skips what the first already claimed.
func (s *Store) MarkInFlight(ctx context.Context, tempID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE mutations SET in_flight = 1 WHERE temp_id = ? AND in_flight = 0`, tempID)
	if err != nil {
		return false, errors.WrapStorage("write", tempID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.WrapStorage("write", tempID, err)
	}
	return n == 1, nil
}

// Release clears the in-flight mark after a failed replay, leaving the entry
// queued for the next drain.
func (s *Store) Release(ctx context.Context, tempID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE mutations SET in_flight = 0 WHERE temp_id = ?`, tempID)
	return errors.WrapStorage("write", tempID, err)
}

// Remove deletes a mutation and its attachments after a confirmed replay.
func (s *Store) Remove(ctx context.Context, tempID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mutations WHERE temp_id = ?`, tempID)
	if err != nil {
		return errors.WrapStorage("delete", tempID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// Len returns the number of queued mutations, in flight or not.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mutations`).Scan(&n); err != nil {
		return 0, errors.WrapStorage("read", "mutations", err)
	}
	return n, nil
}

func (s *Store) loadAttachments(ctx context.Context, tempID string) ([]Attachment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, data FROM attachments WHERE temp_id = ? ORDER BY name`, tempID)
	if err != nil {
		return nil, errors.WrapStorage("read", tempID, err)
	}
	defer rows.Close()

	var attachments []Attachment
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.Name, &a.Data); err != nil {
			return nil, errors.WrapStorage("read", tempID, err)
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}
