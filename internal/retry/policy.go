package retry

import (
	"math/rand"
	"strings"
	"time"

	"git.home.luguber.info/inful/attestbot/internal/config"
	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
)

// jitterMax bounds the random jitter added to every computed delay.
const jitterMax = 200 * time.Millisecond

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	MaxAttempts  int           // total attempts including the first
	BaseDelay    time.Duration // base delay for exponential growth
	MaxDelay     time.Duration // cap for growth
	AbuseMinimum time.Duration // floor applied to abuse-detection responses
}

// DefaultPolicy returns a sensible default policy (5 attempts, 1s base,
// 30s cap, 30s abuse floor).
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 30 * time.Second, AbuseMinimum: 30 * time.Second}
}

// NewPolicy builds a policy from config; zero/invalid values fall back to
// defaults.
func NewPolicy(cfg config.RetryConfig) Policy {
	p := DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelay > 0 {
		p.BaseDelay = cfg.BaseDelay
	}
	if cfg.MaxDelay > 0 {
		p.MaxDelay = cfg.MaxDelay
	}
	if cfg.AbuseMinimum > 0 {
		p.AbuseMinimum = cfg.AbuseMinimum
	}
	if p.BaseDelay > p.MaxDelay {
		p.BaseDelay = p.MaxDelay
	}
	return p
}

// Classification is the outcome of inspecting a failed attempt.
type Classification struct {
	Retryable bool
	Abuse     bool // abuse-detection responses get the AbuseMinimum floor
}

// Classifier maps an error to a Classification. Classifiers must be cheap
// and side-effect free; they run once per failed attempt.
type Classifier func(err error) Classification

// retryableStatuses are the transport statuses worth retrying. Everything
// else (including 403/404) is a terminal answer, not a transient fault.
var retryableStatuses = map[int]bool{
	429: true,
	502: true,
	503: true,
	504: true,
}

// ClassifyTransport is the default classifier: retry on 429/502/503/504 or
// an explicit abuse-detection signal, never on anything else. Errors without
// a transport status fall back to their classified retry strategy.
func ClassifyTransport(err error) Classification {
	if err == nil {
		return Classification{}
	}

	abuse := false
	if c, ok := errors.AsClassified(err); ok {
		if flag, exists := c.Context().Get("abuse_detected"); exists {
			abuse, _ = flag.(bool)
		}
	}
	if !abuse && strings.Contains(strings.ToLower(err.Error()), "abuse detection") {
		abuse = true
	}
	if abuse {
		return Classification{Retryable: true, Abuse: true}
	}

	if status := errors.GetStatus(err); status != 0 {
		return Classification{Retryable: retryableStatuses[status]}
	}

	return Classification{Retryable: errors.GetRetryStrategy(err) == errors.RetryBackoff}
}

// Delay returns the backoff delay for the given attempt (0-indexed):
// min(base * 2^attempt + jitter, max). An abuse-detection response raises
// the result to at least AbuseMinimum; the floor wins over the cap.
func (p Policy) Delay(attempt int, abuse bool) time.Duration {
	return p.delay(attempt, abuse, time.Duration(rand.Int63n(int64(jitterMax))))
}

func (p Policy) delay(attempt int, abuse bool, jitter time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.BaseDelay << uint(attempt)
	if d <= 0 || d > p.MaxDelay { // shift overflow also lands here
		d = p.MaxDelay
	} else {
		d += jitter
		if d > p.MaxDelay {
			d = p.MaxDelay
		}
	}
	if abuse && d < p.AbuseMinimum {
		d = p.AbuseMinimum
	}
	return d
}
