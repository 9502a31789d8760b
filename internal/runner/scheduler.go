package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/attestbot/internal/logfields"
	"git.home.luguber.info/inful/attestbot/internal/quota"
)

// Scheduler wraps gocron to repeat passes on a fixed interval. Ticks that
// fire while a pass is still running are skipped, not queued: a slow pass
// must never stack a second one on top of itself.
type Scheduler struct {
	scheduler gocron.Scheduler
	runner    *Runner
	limiter   *quota.Limiter
	running   sync.Mutex
}

// NewScheduler creates a scheduler around a runner. The limiter is swept
// periodically when non-nil.
func NewScheduler(runner *Runner, limiter *quota.Limiter) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, runner: runner, limiter: limiter}, nil
}

// Schedule registers the periodic pass and the quota sweep.
func (s *Scheduler) Schedule(ctx context.Context, interval, sweepInterval time.Duration) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.tick, ctx),
		gocron.WithName("attestation-pass"),
	)
	if err != nil {
		return fmt.Errorf("failed to create pass job: %w", err)
	}

	if s.limiter != nil && sweepInterval > 0 {
		_, err = s.scheduler.NewJob(
			gocron.DurationJob(sweepInterval),
			gocron.NewTask(func() {
				if removed := s.limiter.Sweep(); removed > 0 {
					slog.Debug("quota sweep", slog.Int("removed", removed))
				}
			}),
			gocron.WithName("quota-sweep"),
		)
		if err != nil {
			return fmt.Errorf("failed to create sweep job: %w", err)
		}
	}
	return nil
}

// tick runs one pass unless the previous one is still going.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.TryLock() {
		slog.Warn("previous pass still running, skipping this tick")
		return
	}
	defer s.running.Unlock()

	if _, err := s.runner.RunOnce(ctx); err != nil && ctx.Err() == nil {
		slog.Error("scheduled pass failed", logfields.Error(err))
	}
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}
