package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const (
	StatusOK    = "ok"
	StatusError = "error"

	defaultListLimit = 50
	maxListLimit     = 500
)

// Entry is one recorded CLI request.
type Entry struct {
	ID         int64
	Command    string
	Symbol     string
	Benchmark  string
	Status     string
	Error      string
	ReportPath string
	Duration   time.Duration
	CreatedAt  time.Time
}

// Store keeps the request history.
type Store struct {
	db *sql.DB
}

// NewStore opens the database at dbPath and creates the requests table.
func NewStore(dbPath string) (*Store, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.Init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Init(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS requests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    command TEXT NOT NULL,
    symbol TEXT NOT NULL DEFAULT '',
    benchmark TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    report_path TEXT NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_requests_created ON requests(created_at);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Record inserts e and returns its row id.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if strings.TrimSpace(e.Command) == "" {
		return 0, fmt.Errorf("command is required")
	}
	if e.Status == "" {
		e.Status = StatusOK
		if e.Error != "" {
			e.Status = StatusError
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO requests (command, symbol, benchmark, status, error, report_path, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, e.Command, e.Symbol, e.Benchmark, e.Status, e.Error, e.ReportPath, e.Duration.Milliseconds(), e.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert request: %w", err)
	}
	return res.LastInsertId()
}

// List returns up to limit entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, command, symbol, benchmark, status, error, report_path, duration_ms, created_at
FROM requests
ORDER BY created_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			ms int64
		)
		if err := rows.Scan(&e.ID, &e.Command, &e.Symbol, &e.Benchmark, &e.Status, &e.Error, &e.ReportPath, &ms, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
