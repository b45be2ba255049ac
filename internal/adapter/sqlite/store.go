// Package sqlite persists the last successfully unified collection so the
// service can serve it immediately after a restart.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/feriando/places-etl/internal/domain"
	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned by Latest when nothing has been stored yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Store is a SQLite-backed snapshot of the unified collection.
// It implements pipeline.Loader and pipeline.Snapshot.
type Store struct {
	conn *sql.DB
}

// Open creates the database file (and its directory) if needed and applies
// the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	// Single writer; avoids SQLITE_BUSY between the refresh loop and readers.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  started_at TEXT NOT NULL,
  loaded_at TEXT NOT NULL,
  place_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS places (
  position INTEGER NOT NULL,
  id TEXT PRIMARY KEY,
  category TEXT NOT NULL,
  lat REAL NOT NULL,
  lng REAL NOT NULL,
  raw_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_places_category ON places(category);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("apply snapshot schema: %w", err)
	}
	return nil
}

// Name identifies the loader in logs and metrics.
func (s *Store) Name() string { return "sqlite" }

// Load replaces the stored collection with places in a single transaction.
func (s *Store) Load(ctx context.Context, run domain.Run, places []domain.Place) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM places`); err != nil {
		return fmt.Errorf("clear places: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO places (position, id, category, lat, lng, raw_json)
VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare place insert: %w", err)
	}
	defer stmt.Close()

	for i := range places {
		raw, err := json.Marshal(places[i])
		if err != nil {
			return fmt.Errorf("marshal place %s: %w", places[i].ID, err)
		}
		if _, err := stmt.ExecContext(ctx, i, places[i].ID, places[i].Category, places[i].Lat, places[i].Lng, string(raw)); err != nil {
			return fmt.Errorf("insert place %s: %w", places[i].ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (id, started_at, loaded_at, place_count) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET loaded_at = excluded.loaded_at, place_count = excluded.place_count`,
		run.ID, run.StartedAt.Format(time.RFC3339Nano), time.Now().UTC().Format(time.RFC3339Nano), len(places),
	); err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO metadata (key, value) VALUES ('latest_run', ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`, run.ID); err != nil {
		return fmt.Errorf("record latest run: %w", err)
	}

	return tx.Commit()
}

// Latest returns the most recently stored collection in its original order.
func (s *Store) Latest(ctx context.Context) (domain.Run, []domain.Place, error) {
	var run domain.Run
	var startedAt string
	err := s.conn.QueryRowContext(ctx, `
SELECT r.id, r.started_at FROM metadata m JOIN runs r ON r.id = m.value
WHERE m.key = 'latest_run'`).Scan(&run.ID, &startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Run{}, nil, ErrNoSnapshot
	}
	if err != nil {
		return domain.Run{}, nil, fmt.Errorf("query latest run: %w", err)
	}
	run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return domain.Run{}, nil, fmt.Errorf("parse run time: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx, `SELECT raw_json FROM places ORDER BY position`)
	if err != nil {
		return domain.Run{}, nil, fmt.Errorf("query places: %w", err)
	}
	defer rows.Close()

	places := []domain.Place{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return domain.Run{}, nil, fmt.Errorf("scan place: %w", err)
		}
		var p domain.Place
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return domain.Run{}, nil, fmt.Errorf("decode place: %w", err)
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return domain.Run{}, nil, fmt.Errorf("iterate places: %w", err)
	}
	return run, places, nil
}

// CountRuns returns how many refresh runs have been stored.
func (s *Store) CountRuns(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}
