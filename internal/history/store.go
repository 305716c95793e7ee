// Package history persists a record of every invocation: when it ran, which
// step it acted on, how many executor attempts that took, and the terminal
// outcome. The history backs the status command; the engine itself never
// reads it (the progress marker alone drives resumption).
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one recorded invocation.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string
	Detail     string
}

// Attempt is one step execution within a run.
type Attempt struct {
	RunID     int64
	StepIndex int
	Label     string
	Artifact  string
	Attempts  int
	Result    string
	Error     string
	CreatedAt time.Time
}

// Store defines the persistence interface for run history.
type Store interface {
	// StartRun opens a new run record and returns its ID.
	StartRun(ctx context.Context) (int64, error)

	// FinishRun closes a run record with its terminal outcome.
	FinishRun(ctx context.Context, runID int64, outcome, detail string) error

	// RecordAttempt saves one step execution.
	RecordAttempt(ctx context.Context, a Attempt) error

	// RecentRuns returns the most recent runs, newest first.
	RecentRuns(ctx context.Context, limit int) ([]Run, error)

	// Lifecycle
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store at the given path.
// Creates parent directories if needed. Enables WAL mode and busy timeout.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return initStore(ctx, db)
}

// NewMemoryStore creates an in-memory SQLite store for testing.
// Uses a shared cache so multiple connections see the same database.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", "file::memory:?mode=memory&cache=shared")
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}

	return initStore(ctx, db)
}

func initStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	// Enable foreign keys via PRAGMA (required for modernc.org/sqlite)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// The runner is single-threaded; one writer plus one reader is plenty.
	db.SetMaxOpenConns(2)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
