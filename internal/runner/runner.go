package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/attestbot/internal/attest"
	"git.home.luguber.info/inful/attestbot/internal/forge"
	"git.home.luguber.info/inful/attestbot/internal/ledger"
	"git.home.luguber.info/inful/attestbot/internal/logfields"
	"git.home.luguber.info/inful/attestbot/internal/metrics"
	"git.home.luguber.info/inful/attestbot/internal/quota"
	"git.home.luguber.info/inful/attestbot/internal/retry"
	"git.home.luguber.info/inful/attestbot/internal/watch"
)

// defaultLookback bounds the first pass when no checkpoint exists yet.
const defaultLookback = 24 * time.Hour

// IdentitySource resolves the registered identities for a pass.
type IdentitySource interface {
	Resolve(ctx context.Context) []ledger.RegisteredIdentity
}

// AttestedSource lists commit shas already attested on the ledger.
type AttestedSource interface {
	SHAsSince(ctx context.Context, since time.Time) (map[string]bool, error)
}

// CommitSubmitter runs one (identity, commit) pair to a terminal state.
type CommitSubmitter interface {
	Submit(ctx context.Context, identity ledger.RegisteredIdentity, commit forge.Commit) attest.Result
}

// Deps wires a Runner. Registry, Identities, Attested, Submitter, Limiter
// and Store are required; the rest default to no-ops.
type Deps struct {
	Registry    *forge.Registry
	Identities  IdentitySource
	Attested    AttestedSource
	Submitter   CommitSubmitter
	Limiter     *quota.Limiter
	Store       Store
	Publisher   Publisher
	Recorder    metrics.Recorder
	Policy      retry.Policy
	SkipOwners  []string
	SubmitPause time.Duration

	// Now and Sleep are swappable for tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Runner drives one strictly sequential discovery/submission pass at a
// time. No worker pools: ordering and rate control matter more than
// throughput here.
type Runner struct {
	deps Deps
}

// NewRunner builds a runner, filling optional dependencies with defaults.
func NewRunner(deps Deps) *Runner {
	if deps.Publisher == nil {
		deps.Publisher = NoopPublisher{}
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.NoopRecorder{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Sleep == nil {
		deps.Sleep = sleepCtx
	}
	if deps.Policy.MaxAttempts == 0 {
		deps.Policy = retry.DefaultPolicy()
	}
	return &Runner{deps: deps}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RunOnce executes one full pass: resolve identities, expand watch lists,
// fetch commits since the checkpoint, dedup, match, rate-limit, submit.
// The checkpoint advances after the pass whether or not every repo and
// submission succeeded; a partially failed pass never repeats its window.
func (r *Runner) RunOnce(ctx context.Context) (PassStats, error) {
	d := &r.deps
	stats := PassStats{RunID: uuid.NewString(), StartedAt: d.Now()}
	log := slog.With(logfields.RunID(stats.RunID))

	since, err := d.Store.Checkpoint(ctx)
	if err != nil {
		return stats, err
	}
	if since.IsZero() {
		since = stats.StartedAt.Add(-defaultLookback)
	}
	log.Info("starting pass", slog.Time("since", since))

	identities := d.Identities.Resolve(ctx)
	matcher := watch.NewMatcher(identities)

	ledgerSHAs, err := d.Attested.SHAsSince(ctx, since)
	if err != nil {
		log.Warn("reading attested commits failed, relying on in-run dedup only",
			logfields.Error(err))
		ledgerSHAs = nil
	}
	filter := watch.NewDedupFilter(ledgerSHAs)

	repos := watch.ResolveAll(ctx, d.Registry, identities, d.SkipOwners)
	fatalPrincipals := make(map[string]bool)

repoLoop:
	for _, repo := range repos {
		if ctx.Err() != nil {
			break
		}
		client, ok := d.Registry.ByDomain(repo.Domain)
		if !ok {
			continue
		}

		commits, err := retry.Do(ctx, d.Policy, retry.ClassifyTransport, "list commits",
			func(ctx context.Context) ([]forge.Commit, error) {
				return client.ListCommits(ctx, repo.Owner, repo.Name, since)
			})
		if err != nil {
			if forge.IsSkippable(err) {
				log.Debug("repo not reachable, skipping",
					logfields.Repository(repo.FullName()),
					logfields.Error(err))
			} else {
				log.Warn("commit discovery failed",
					logfields.Repository(repo.FullName()),
					logfields.Error(err))
				stats.Failed++
			}
			continue
		}
		stats.Discovered += len(commits)

		matches := matcher.MatchAll(commits, filter, nil)
		stats.Matched += len(matches)

		for _, match := range matches {
			if ctx.Err() != nil {
				break repoLoop
			}
			principal := match.Identity.PrincipalAddress
			if fatalPrincipals[principal] {
				continue
			}

			decision := d.Limiter.Check(principal)
			if !decision.Allowed {
				stats.RateLimited++
				d.Recorder.IncRateLimited()
				log.Debug("submission deferred by quota",
					logfields.Principal(principal),
					slog.String("window", decision.Reason),
					slog.Duration("retry_after", decision.RetryAfter))
				continue
			}

			result := d.Submitter.Submit(ctx, match.Identity, match.Commit)
			d.Recorder.IncSubmission(string(result.Outcome))
			r.record(ctx, log, stats.RunID, match, result)

			switch result.Outcome {
			case attest.Attested:
				stats.Attested++
				r.publish(ctx, log, stats.RunID, match, result)
			case attest.FatalForIdentity:
				fatalPrincipals[principal] = true
			case attest.Rejected:
				stats.Failed++
			}

			if err := d.Sleep(ctx, d.SubmitPause); err != nil {
				break repoLoop
			}
		}
	}

	if err := d.Store.SetCheckpoint(ctx, d.Now()); err != nil {
		log.Error("advancing checkpoint failed", logfields.Error(err))
	}

	stats.FinishedAt = d.Now()
	if err := d.Store.RecordPass(ctx, stats); err != nil {
		log.Warn("recording pass failed", logfields.Error(err))
	}

	outcome := "success"
	if stats.Failed > 0 {
		outcome = "partial"
	}
	d.Recorder.IncPassOutcome(outcome)
	d.Recorder.AddCommitsDiscovered(stats.Discovered)
	d.Recorder.AddCommitsMatched(stats.Matched)
	d.Recorder.ObservePassDuration(stats.FinishedAt.Sub(stats.StartedAt))

	log.Info("pass finished",
		slog.Int("discovered", stats.Discovered),
		slog.Int("matched", stats.Matched),
		slog.Int("attested", stats.Attested),
		slog.Int("rate_limited", stats.RateLimited),
		slog.Int("failed", stats.Failed))
	return stats, ctx.Err()
}

func (r *Runner) record(ctx context.Context, log *slog.Logger, runID string, match watch.Match, result attest.Result) {
	rec := SubmissionRecord{
		RunID:        runID,
		Principal:    match.Identity.PrincipalAddress,
		Domain:       match.Commit.Repo.Domain,
		Repository:   match.Commit.Repo.FullName(),
		CommitSHA:    match.Commit.SHA,
		Outcome:      string(result.Outcome),
		RecordID:     result.RecordID,
		SettlementID: result.SettlementID,
		At:           r.deps.Now(),
	}
	if err := r.deps.Store.RecordSubmission(ctx, rec); err != nil {
		log.Warn("recording submission failed", logfields.Error(err))
	}
}

func (r *Runner) publish(ctx context.Context, log *slog.Logger, runID string, match watch.Match, result attest.Result) {
	event := AttestedEvent{
		RunID:        runID,
		Principal:    match.Identity.PrincipalAddress,
		Domain:       match.Commit.Repo.Domain,
		Repository:   match.Commit.Repo.FullName(),
		CommitSHA:    match.Commit.SHA,
		CommitURL:    match.Commit.URL,
		RecordID:     result.RecordID,
		SettlementID: result.SettlementID,
		Timestamp:    r.deps.Now(),
	}
	if err := r.deps.Publisher.PublishAttested(ctx, event); err != nil {
		log.Warn("publishing attestation event failed", logfields.Error(err))
	}
}
