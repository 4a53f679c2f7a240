package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	union_id    TEXT NOT NULL,
	package     TEXT NOT NULL,
	cases       TEXT NOT NULL,
	conversions TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS entries_union ON entries(union_id, id);
`

// Store is a SQLite ledger of entries.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the ledger at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	// One writer at a time keeps SQLite from reporting busy errors.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating ledger %s: %w", path, err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores entries as one run and returns the run id.
func (s *Store) Record(ctx context.Context, entries []Entry) (string, error) {
	runID := uuid.NewString()
	now := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "INSERT INTO runs (id, started_at) VALUES (?, ?)", runID, now.UnixNano()); err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	for _, e := range entries {
		cases, err := json.Marshal(e.Cases)
		if err != nil {
			return "", fmt.Errorf("encoding %s: %w", e.Union, err)
		}
		convs, err := json.Marshal(e.Conversions)
		if err != nil {
			return "", fmt.Errorf("encoding %s: %w", e.Union, err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO entries (run_id, union_id, package, cases, conversions, fingerprint, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			runID, e.Union, e.Package, string(cases), string(convs), e.Fingerprint, now.UnixNano(),
		)
		if err != nil {
			return "", fmt.Errorf("recording %s: %w", e.Union, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	return runID, nil
}

// Latest returns the most recent entry of a union.
func (s *Store) Latest(ctx context.Context, unionID string) (Entry, bool, error) {
	entries, err := s.History(ctx, unionID, 1)
	if err != nil || len(entries) == 0 {
		return Entry{}, false, err
	}
	return entries[0], true, nil
}

// History returns up to limit entries of a union, newest first. An empty
// unionID selects every union; a limit <= 0 means no limit.
func (s *Store) History(ctx context.Context, unionID string, limit int) ([]Entry, error) {
	query := "SELECT run_id, union_id, package, cases, conversions, fingerprint, recorded_at FROM entries"
	var args []any
	if unionID != "" {
		query += " WHERE union_id = ?"
		args = append(args, unionID)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e            Entry
			cases, convs string
			recordedAt   int64
		)
		if err := rows.Scan(&e.RunID, &e.Union, &e.Package, &cases, &convs, &e.Fingerprint, &recordedAt); err != nil {
			return nil, fmt.Errorf("reading ledger: %w", err)
		}
		if err := json.Unmarshal([]byte(cases), &e.Cases); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", e.Union, err)
		}
		if err := json.Unmarshal([]byte(convs), &e.Conversions); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", e.Union, err)
		}
		e.RecordedAt = time.Unix(0, recordedAt).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	return out, nil
}
