package runner

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the state database. Use ":memory:" for
// an ephemeral store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checkpoint (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		principal TEXT NOT NULL,
		domain TEXT NOT NULL,
		repository TEXT NOT NULL,
		commit_sha TEXT NOT NULL,
		outcome TEXT NOT NULL,
		record_id TEXT,
		settlement_id TEXT,
		at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_submissions_run ON submissions(run_id);
	CREATE INDEX IF NOT EXISTS idx_submissions_sha ON submissions(commit_sha);
	CREATE TABLE IF NOT EXISTS passes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		discovered INTEGER NOT NULL,
		matched INTEGER NOT NULL,
		attested INTEGER NOT NULL,
		rate_limited INTEGER NOT NULL,
		failed INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Checkpoint returns the stored checkpoint, or the zero time when no pass
// has completed yet.
func (s *SQLiteStore) Checkpoint(ctx context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var unix int64
	err := s.db.QueryRowContext(ctx, "SELECT at FROM checkpoint WHERE id = 1").Scan(&unix)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query checkpoint: %w", err)
	}
	return time.Unix(unix, 0).UTC(), nil
}

// SetCheckpoint stores the checkpoint, overwriting any previous value.
func (s *SQLiteStore) SetCheckpoint(ctx context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO checkpoint (id, at) VALUES (1, ?) ON CONFLICT(id) DO UPDATE SET at = excluded.at",
		t.UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store checkpoint: %w", err)
	}
	return nil
}

// RecordSubmission appends one terminal submission outcome.
func (s *SQLiteStore) RecordSubmission(ctx context.Context, rec SubmissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (run_id, principal, domain, repository, commit_sha, outcome, record_id, settlement_id, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Principal, rec.Domain, rec.Repository, rec.CommitSHA,
		rec.Outcome, rec.RecordID, rec.SettlementID, rec.At.UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// RecordPass appends one pass summary.
func (s *SQLiteStore) RecordPass(ctx context.Context, stats PassStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO passes (run_id, started_at, finished_at, discovered, matched, attested, rate_limited, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		stats.RunID, stats.StartedAt.UTC().Unix(), stats.FinishedAt.UTC().Unix(),
		stats.Discovered, stats.Matched, stats.Attested, stats.RateLimited, stats.Failed,
	)
	if err != nil {
		return fmt.Errorf("insert pass: %w", err)
	}
	return nil
}

// LastPass returns the newest pass summary, or nil when none exists.
func (s *SQLiteStore) LastPass(ctx context.Context) (*PassStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats PassStats
	var started, finished int64
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, started_at, finished_at, discovered, matched, attested, rate_limited, failed
		 FROM passes ORDER BY id DESC LIMIT 1`,
	).Scan(&stats.RunID, &started, &finished, &stats.Discovered, &stats.Matched,
		&stats.Attested, &stats.RateLimited, &stats.Failed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last pass: %w", err)
	}
	stats.StartedAt = time.Unix(started, 0).UTC()
	stats.FinishedAt = time.Unix(finished, 0).UTC()
	return &stats, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
