// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists a per-cycle delivery audit trail in SQLite.
// Recording is optional: the runner writes entries only when a database path
// is configured.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/sonar/internal/window"
)

// Outcome classifies how one user cycle ended.
type Outcome string

const (
	// OutcomeSent: digest delivered over SMTP, watermark advanced.
	OutcomeSent Outcome = "sent"

	// OutcomePrinted: digest written to the console in print-only mode.
	OutcomePrinted Outcome = "printed"

	// OutcomeSearchFailed: the arXiv query failed; nothing was sent.
	OutcomeSearchFailed Outcome = "search_failed"

	// OutcomeDeliveryFailed: SMTP submission failed; watermark untouched.
	OutcomeDeliveryFailed Outcome = "delivery_failed"
)

// Entry is one recorded user cycle.
type Entry struct {
	User        string
	Email       string
	WindowStart time.Time
	WindowEnd   time.Time
	Results     int
	Outcome     Outcome
	CreatedAt   time.Time
}

// Store manages the delivery history SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user TEXT NOT NULL,
			email TEXT NOT NULL,
			window_start TEXT NOT NULL,
			window_end TEXT NOT NULL,
			results INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_user ON runs(user)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record appends one cycle entry. A zero CreatedAt is stamped with the
// current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (user, email, window_start, window_end, results, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.User, e.Email,
		e.WindowStart.Format(window.TimeFormat),
		e.WindowEnd.Format(window.TimeFormat),
		e.Results, string(e.Outcome),
		e.CreatedAt.Format(window.TimeFormat),
	)
	if err != nil {
		return fmt.Errorf("recording run for %s: %w", e.User, err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT user, email, window_start, window_end, results, outcome, created_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var start, end, created, outcome string
		if err := rows.Scan(&e.User, &e.Email, &start, &end, &e.Results, &outcome, &created); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.Outcome = Outcome(outcome)
		if e.WindowStart, err = time.Parse(window.TimeFormat, start); err != nil {
			return nil, fmt.Errorf("invalid window_start %q: %w", start, err)
		}
		if e.WindowEnd, err = time.Parse(window.TimeFormat, end); err != nil {
			return nil, fmt.Errorf("invalid window_end %q: %w", end, err)
		}
		if e.CreatedAt, err = time.Parse(window.TimeFormat, created); err != nil {
			return nil, fmt.Errorf("invalid created_at %q: %w", created, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
