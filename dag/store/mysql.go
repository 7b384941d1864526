package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB-backed Store.
//
// Suitable for long-lived deployments where run history must survive
// process restarts or be inspected by other services. Uses connection
// pooling; the table is created on first use.
//
// DSN format (github.com/go-sql-driver/mysql):
//
//	user:password@tcp(localhost:3306)/taskdag?parseTime=true
//
// Never hardcode credentials; read the DSN from the environment:
//
//	st, err := store.NewMySQLStore(os.Getenv("MYSQL_DSN"))
type MySQLStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewMySQLStore opens a pooled connection to dsn and runs migrations.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS run_outcomes (
			run_id      VARCHAR(128)  NOT NULL,
			seq         INT           NOT NULL,
			node_id     VARCHAR(255)  NOT NULL,
			status      VARCHAR(16)   NOT NULL,
			value_json  MEDIUMTEXT,
			error       TEXT          NOT NULL,
			skip_reason VARCHAR(255)  NOT NULL,
			started_at  BIGINT        NOT NULL DEFAULT 0,
			finished_at BIGINT        NOT NULL DEFAULT 0,
			duration_ms BIGINT        NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, seq)
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create run_outcomes table: %w", err)
	}

	return &MySQLStore{db: db}, nil
}

// SaveOutcome persists one outcome record. The value is stored as JSON.
func (s *MySQLStore) SaveOutcome(ctx context.Context, rec Record) error {
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
func (s *MySQLStore) LoadRun(ctx context.Context, runID string) ([]Record, error) {
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
func (s *MySQLStore) Runs(ctx context.Context) ([]string, error) {
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
func (s *MySQLStore) DeleteRun(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM run_outcomes WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	return nil
}

// Close closes the connection pool.
func (s *MySQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
