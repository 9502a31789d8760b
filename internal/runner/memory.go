package runner

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and single-shot runs that
// do not need persistence.
type MemoryStore struct {
	mu          sync.RWMutex
	checkpoint  time.Time
	submissions []SubmissionRecord
	passes      []PassStats
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Checkpoint(context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkpoint, nil
}

func (s *MemoryStore) SetCheckpoint(_ context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoint = t.UTC()
	return nil
}

func (s *MemoryStore) RecordSubmission(_ context.Context, rec SubmissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, rec)
	return nil
}

func (s *MemoryStore) RecordPass(_ context.Context, stats PassStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passes = append(s.passes, stats)
	return nil
}

func (s *MemoryStore) LastPass(context.Context) (*PassStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.passes) == 0 {
		return nil, nil
	}
	last := s.passes[len(s.passes)-1]
	return &last, nil
}

func (s *MemoryStore) Close() error { return nil }

// Submissions returns a copy of the recorded submissions.
func (s *MemoryStore) Submissions() []SubmissionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SubmissionRecord, len(s.submissions))
	copy(out, s.submissions)
	return out
}
