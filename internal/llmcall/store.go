package llmcall

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS llm_calls (
	id              TEXT PRIMARY KEY,
	timestamp       INTEGER NOT NULL,
	latency_ms      INTEGER NOT NULL,
	session_id      TEXT NOT NULL DEFAULT '',
	page_num        INTEGER NOT NULL,
	attempt         INTEGER NOT NULL,
	provider        TEXT NOT NULL,
	model           TEXT NOT NULL DEFAULT '',
	target_language TEXT NOT NULL DEFAULT '',
	input_tokens    INTEGER NOT NULL DEFAULT 0,
	output_tokens   INTEGER NOT NULL DEFAULT 0,
	response        TEXT NOT NULL DEFAULT '',
	success         INTEGER NOT NULL,
	error           TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_llm_calls_session ON llm_calls(session_id, page_num);
CREATE INDEX IF NOT EXISTS idx_llm_calls_timestamp ON llm_calls(timestamp);
`

const callColumns = `id, timestamp, latency_ms, session_id, page_num, attempt, provider, model,
	target_language, input_tokens, output_tokens, response, success, error`

// Store provides access to call records in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the call database at path.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// QueryFilter specifies filters for listing calls.
type QueryFilter struct {
	SessionID  string
	PageNumber int
	Provider   string
	Model      string
	After      *time.Time
	Before     *time.Time
	Success    *bool
	Limit      int
	Offset     int
}

// Insert writes calls in one transaction.
func (s *Store) Insert(ctx context.Context, calls ...*Call) error {
	if len(calls) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO llm_calls (`+callColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range calls {
		if c == nil {
			continue
		}
		_, err := stmt.ExecContext(ctx,
			c.ID, c.Timestamp.UnixMicro(), c.LatencyMs, c.SessionID, c.PageNumber, c.Attempt,
			c.Provider, c.Model, c.TargetLanguage, c.InputTokens, c.OutputTokens,
			c.Response, c.Success, c.Error)
		if err != nil {
			return fmt.Errorf("failed to insert call %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get retrieves a single call by ID. It returns nil, nil if not found.
func (s *Store) Get(ctx context.Context, id string) (*Call, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+callColumns+` FROM llm_calls WHERE id = ?`, id)
	call, err := scanCall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return call, nil
}

// List retrieves calls matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter QueryFilter) ([]Call, error) {
	var conditions []string
	var args []any

	if filter.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.PageNumber > 0 {
		conditions = append(conditions, "page_num = ?")
		args = append(args, filter.PageNumber)
	}
	if filter.Provider != "" {
		conditions = append(conditions, "provider = ?")
		args = append(args, filter.Provider)
	}
	if filter.Model != "" {
		conditions = append(conditions, "model = ?")
		args = append(args, filter.Model)
	}
	if filter.Success != nil {
		conditions = append(conditions, "success = ?")
		args = append(args, *filter.Success)
	}
	if filter.After != nil {
		conditions = append(conditions, "timestamp > ?")
		args = append(args, filter.After.UnixMicro())
	}
	if filter.Before != nil {
		conditions = append(conditions, "timestamp < ?")
		args = append(args, filter.Before.UnixMicro())
	}

	query := `SELECT ` + callColumns + ` FROM llm_calls`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var calls []Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		calls = append(calls, *call)
	}
	return calls, rows.Err()
}

// CountByProvider returns call counts grouped by provider, optionally scoped
// to one session.
func (s *Store) CountByProvider(ctx context.Context, sessionID string) (map[string]int, error) {
	query := `SELECT provider, COUNT(*) FROM llm_calls`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` GROUP BY provider`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var provider string
		var n int
		if err := rows.Scan(&provider, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[provider] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCall(row scanner) (*Call, error) {
	var c Call
	var ts int64
	err := row.Scan(&c.ID, &ts, &c.LatencyMs, &c.SessionID, &c.PageNumber, &c.Attempt,
		&c.Provider, &c.Model, &c.TargetLanguage, &c.InputTokens, &c.OutputTokens,
		&c.Response, &c.Success, &c.Error)
	if err != nil {
		return nil, err
	}
	c.Timestamp = time.UnixMicro(ts)
	return &c, nil
}
