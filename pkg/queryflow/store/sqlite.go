package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists executions to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite execution store.
// The path should be a file path (e.g. "./executions.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			status TEXT NOT NULL,
			input_query TEXT NOT NULL,
			result BLOB,
			error TEXT NOT NULL DEFAULT '',
			progress REAL NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			completed_at TEXT
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_executions_workflow_id
		ON executions(workflow_id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Create implements Store.
func (s *SQLiteStore) Create(ctx context.Context, exec Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	var result []byte
	if exec.Result != nil {
		var err error
		result, err = json.Marshal(exec.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions (id, workflow_id, user_id, status, input_query, result, error, progress, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, exec.ID, exec.WorkflowID, exec.UserID, string(exec.Status), exec.InputQuery,
		result, exec.Error, exec.Progress, exec.StartedAt.UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("create execution: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Execution{}, ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, user_id, status, input_query, result, error, progress, started_at, completed_at
		FROM executions WHERE id = ?
	`, id)

	exec, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return Execution{}, ErrNotFound
	}
	if err != nil {
		return Execution{}, fmt.Errorf("get execution: %w", err)
	}
	return exec, nil
}

// SetStatus implements Store.
func (s *SQLiteStore) SetStatus(ctx context.Context, id string, status Status, result map[string]any, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	var resultJSON []byte
	if result != nil {
		var err error
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
	}

	var completedAt any
	progressExpr := "progress"
	if status.Terminal() {
		completedAt = time.Now().UTC().Format(time.RFC3339Nano)
		if status == StatusCompleted {
			progressExpr = "1.0"
		}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE executions SET
			status = ?,
			result = COALESCE(?, result),
			error = CASE WHEN ? != '' THEN ? ELSE error END,
			progress = `+progressExpr+`,
			completed_at = COALESCE(?, completed_at)
		WHERE id = ?
	`, string(status), resultJSON, errMsg, errMsg, completedAt, id)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetProgress implements Store.
func (s *SQLiteStore) SetProgress(ctx context.Context, id string, progress float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE executions SET progress = ? WHERE id = ?
	`, progress, id)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByWorkflow implements Store.
func (s *SQLiteStore) ListByWorkflow(ctx context.Context, workflowID string) ([]Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workflow_id, user_id, status, input_query, result, error, progress, started_at, completed_at
		FROM executions WHERE workflow_id = ?
		ORDER BY started_at DESC
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	execs := []Execution{}
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		execs = append(execs, exec)
	}
	return execs, rows.Err()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanExecution(row scanner) (Execution, error) {
	var (
		exec        Execution
		status      string
		result      []byte
		startedAt   string
		completedAt sql.NullString
	)
	err := row.Scan(&exec.ID, &exec.WorkflowID, &exec.UserID, &status, &exec.InputQuery,
		&result, &exec.Error, &exec.Progress, &startedAt, &completedAt)
	if err != nil {
		return Execution{}, err
	}

	exec.Status = Status(status)
	if len(result) > 0 {
		if err := json.Unmarshal(result, &exec.Result); err != nil {
			return Execution{}, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	exec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Execution{}, fmt.Errorf("parse started_at: %w", err)
	}
	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return Execution{}, fmt.Errorf("parse completed_at: %w", err)
		}
		exec.CompletedAt = &t
	}
	return exec, nil
}
