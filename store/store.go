// Package store keeps a history of deadcam runs and their verdicts in sqlite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/lukemcguire/deadcam/result"
)

// Run is one recorded batch.
type Run struct {
	ID         string
	Input      string
	FinishedAt time.Time
	Stats      result.BatchStats
}

// Store is a sqlite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path and migrates its schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	input        TEXT NOT NULL,
	finished_at  INTEGER NOT NULL, -- unix nanoseconds
	loaded       INTEGER NOT NULL,
	excluded     INTEGER NOT NULL,
	duplicates   INTEGER NOT NULL,
	checked      INTEGER NOT NULL,
	alive        INTEGER NOT NULL,
	duration_ms  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs (finished_at DESC);

CREATE TABLE IF NOT EXISTS verdicts (
	run_id       TEXT NOT NULL,
	position     INTEGER NOT NULL,
	url          TEXT NOT NULL,
	category     TEXT NOT NULL,
	stream_type  TEXT NOT NULL,
	strategy     TEXT NOT NULL,
	alive        INTEGER NOT NULL,
	reason       TEXT NOT NULL,
	status_code  INTEGER,
	detail       TEXT,
	duration_ms  INTEGER NOT NULL,
	checked_at   INTEGER NOT NULL, -- unix nanoseconds
	PRIMARY KEY (run_id, position),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_verdicts_url ON verdicts (url, checked_at DESC);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// RecordRun stores a finished batch with all its verdicts and returns the
// new run ID.
func (s *Store) RecordRun(ctx context.Context, input string, stats result.BatchStats, verdicts []result.Verdict, finished time.Time) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, input, finished_at, loaded, excluded, duplicates, checked, alive, duration_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, input, finished.UnixNano(),
		stats.Loaded, stats.Excluded, stats.Duplicates, stats.Checked, stats.Alive, stats.Duration.Milliseconds(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO verdicts (run_id, position, url, category, stream_type, strategy, alive, reason, status_code, detail, duration_ms, checked_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare verdict insert: %w", err)
	}
	defer stmt.Close()

	for i, v := range verdicts {
		_, err := stmt.ExecContext(ctx,
			id, i, v.Record.URL, v.Record.Category, string(v.Record.StreamType), string(v.Strategy),
			v.Alive, string(v.Reason), v.StatusCode, v.Detail, v.Duration.Milliseconds(),
			v.CheckedAt.UnixNano(),
		)
		if err != nil {
			return "", fmt.Errorf("insert verdict for %s: %w", v.Record.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return id, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input, finished_at, loaded, excluded, duplicates, checked, alive, duration_ms
FROM runs ORDER BY finished_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finishedAt, durationMS int64
		if err := rows.Scan(&r.ID, &r.Input, &finishedAt,
			&r.Stats.Loaded, &r.Stats.Excluded, &r.Stats.Duplicates, &r.Stats.Checked, &r.Stats.Alive, &durationMS); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		r.FinishedAt = time.Unix(0, finishedAt).UTC()
		r.Stats.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ReasonCounts tallies the verdicts of a run by reason.
func (s *Store) ReasonCounts(ctx context.Context, runID string) (map[result.Reason]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT reason, COUNT(*) FROM verdicts WHERE run_id = ? GROUP BY reason`, runID)
	if err != nil {
		return nil, fmt.Errorf("count reasons: %w", err)
	}
	defer rows.Close()

	counts := make(map[result.Reason]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("scan reason row: %w", err)
		}
		counts[result.Reason(reason)] = n
	}
	return counts, rows.Err()
}
