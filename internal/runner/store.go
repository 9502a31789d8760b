package runner

import (
	"context"
	"time"
)

// SubmissionRecord is one terminal submission outcome, kept for the status
// surface and operator forensics.
type SubmissionRecord struct {
	RunID        string
	Principal    string
	Domain       string
	Repository   string
	CommitSHA    string
	Outcome      string
	RecordID     string
	SettlementID string
	At           time.Time
}

// PassStats summarizes one discovery/submission pass.
type PassStats struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Discovered  int
	Matched     int
	Attested    int
	RateLimited int
	Failed      int
}

// Store persists the checkpoint and the submission log across process
// restarts. A zero checkpoint means no pass has completed yet.
type Store interface {
	Checkpoint(ctx context.Context) (time.Time, error)
	SetCheckpoint(ctx context.Context, t time.Time) error
	RecordSubmission(ctx context.Context, rec SubmissionRecord) error
	RecordPass(ctx context.Context, stats PassStats) error
	LastPass(ctx context.Context) (*PassStats, error)
	Close() error
}
