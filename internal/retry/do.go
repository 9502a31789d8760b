package retry

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/attestbot/internal/logfields"
)

// Do runs op with the policy's backoff, consulting classify after each
// failure. Non-retryable failures and exhausted attempts surface the last
// error unchanged; the caller decides what the failure means for its scope.
func Do[T any](ctx context.Context, p Policy, classify Classifier, label string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if classify == nil {
		classify = ClassifyTransport
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		c := classify(err)
		if !c.Retryable || attempt == p.MaxAttempts-1 {
			break
		}

		delay := p.Delay(attempt, c.Abuse)
		slog.Debug("retrying after transient failure",
			slog.String("op", label),
			logfields.Attempt(attempt+1),
			slog.Duration("delay", delay),
			slog.Bool("abuse", c.Abuse),
			logfields.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, lastErr
}
