package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed Store.
//
// It keeps run outcomes in a single-file database, suitable for local and
// single-process use with zero setup. WAL mode is enabled so readers are
// not blocked by the writer.
//
// Example:
//
//	st, err := store.NewSQLiteStore("./runs.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
//
// For tests, use ":memory:".
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewSQLiteStore opens (creating if needed) the database at path and runs
// migrations. path may be ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// A single connection avoids table-lock races with modernc's driver.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS run_outcomes (
			run_id      TEXT    NOT NULL,
			seq         INTEGER NOT NULL,
			node_id     TEXT    NOT NULL,
			status      TEXT    NOT NULL,
			value_json  TEXT,
			error       TEXT    NOT NULL DEFAULT '',
			skip_reason TEXT    NOT NULL DEFAULT '',
			started_at  INTEGER NOT NULL DEFAULT 0,
			finished_at INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, seq)
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create run_outcomes table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveOutcome persists one outcome record. The value is stored as JSON.
func (s *SQLiteStore) SaveOutcome(ctx context.Context, rec Record) error {
	valueJSON, err := marshalValue(rec.Value)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO run_outcomes
			(run_id, seq, node_id, status, value_json, error, skip_reason, started_at, finished_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Seq, rec.NodeID, string(rec.Status), valueJSON,
		rec.Error, rec.SkipReason,
		rec.StartedAt.UnixMilli(), rec.FinishedAt.UnixMilli(),
		rec.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("save outcome for run %s seq %d: %w", rec.RunID, rec.Seq, err)
	}
	return nil
}

// LoadRun returns all records for runID ordered by Seq.
func (s *SQLiteStore) LoadRun(ctx context.Context, runID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, node_id, status, value_json, error, skip_reason, started_at, finished_at, duration_ms
		FROM run_outcomes WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows, runID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// Runs returns the distinct run IDs in the store.
func (s *SQLiteStore) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT run_id FROM run_outcomes ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

// DeleteRun removes all records for runID.
func (s *SQLiteStore) DeleteRun(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM run_outcomes WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// rowScanner abstracts *sql.Rows for the shared scan helper.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecords(rows rowScanner, runID string) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var (
			rec                   Record
			status                string
			valueJSON             sql.NullString
			startedMs, finishedMs int64
			durationMs            int64
		)
		if err := rows.Scan(&rec.Seq, &rec.NodeID, &status, &valueJSON,
			&rec.Error, &rec.SkipReason, &startedMs, &finishedMs, &durationMs); err != nil {
			return nil, fmt.Errorf("scan outcome record: %w", err)
		}

		rec.RunID = runID
		rec.Status = Status(status)
		if valueJSON.Valid && valueJSON.String != "" {
			var value any
			if err := json.Unmarshal([]byte(valueJSON.String), &value); err != nil {
				return nil, fmt.Errorf("decode value for node %s: %w", rec.NodeID, err)
			}
			rec.Value = value
		}
		if startedMs > 0 {
			rec.StartedAt = time.UnixMilli(startedMs)
		}
		if finishedMs > 0 {
			rec.FinishedAt = time.UnixMilli(finishedMs)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

func marshalValue(value any) (sql.NullString, error) {
	if value == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode outcome value: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
