package quota

import (
	"strings"
	"sync"
	"time"
)

// Window names reported in rejection reasons.
const (
	WindowMinute = "minute"
	WindowHour   = "hour"
	WindowDay    = "day"
)

// Limits defines the per-identity submission quotas, one maximum per window.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration // soonest-resetting exceeded window; zero when allowed
	Reason     string        // which window rejected the request
}

// window tracks one sliding quota window for one identity key.
type window struct {
	count   int
	resetAt time.Time
}

func (w *window) refresh(now time.Time, span time.Duration) {
	if now.After(w.resetAt) {
		w.count = 0
		w.resetAt = now.Add(span)
	}
}

// usage holds the three windows for one identity key. Lazily created on
// first use and discarded by the sweep once every window has expired.
type usage struct {
	minute window
	hour   window
	day    window
}

// Limiter enforces multi-window quotas per identity key. Keys are lowercased
// principal addresses; a request passes only when all three windows are
// under quota, and counters increment atomically only on allow.
type Limiter struct {
	mu     sync.Mutex
	limits Limits
	usage  map[string]*usage
	now    func() time.Time
}

// NewLimiter creates a limiter with the given limits.
func NewLimiter(limits Limits) *Limiter {
	return &Limiter{
		limits: limits,
		usage:  make(map[string]*usage),
		now:    time.Now,
	}
}

// NewLimiterAt creates a limiter with an injected clock, for tests.
func NewLimiterAt(limits Limits, now func() time.Time) *Limiter {
	l := NewLimiter(limits)
	l.now = now
	return l
}

// Check consumes one slot for the identity key if every window is under
// quota. On rejection no counter moves and the decision names the soonest-
// resetting exceeded window.
func (l *Limiter) Check(identityKey string) Decision {
	key := strings.ToLower(identityKey)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.usage[key]
	if !ok {
		u = &usage{
			minute: window{resetAt: now.Add(time.Minute)},
			hour:   window{resetAt: now.Add(time.Hour)},
			day:    window{resetAt: now.Add(24 * time.Hour)},
		}
		l.usage[key] = u
	}

	u.minute.refresh(now, time.Minute)
	u.hour.refresh(now, time.Hour)
	u.day.refresh(now, 24*time.Hour)

	type check struct {
		name string
		w    *window
		max  int
	}
	checks := []check{
		{WindowMinute, &u.minute, l.limits.PerMinute},
		{WindowHour, &u.hour, l.limits.PerHour},
		{WindowDay, &u.day, l.limits.PerDay},
	}

	rejected := Decision{Allowed: true}
	for _, c := range checks {
		if c.max <= 0 {
			continue // window disabled
		}
		if c.w.count >= c.max {
			retryAfter := c.w.resetAt.Sub(now)
			if rejected.Allowed || retryAfter < rejected.RetryAfter {
				rejected = Decision{Allowed: false, RetryAfter: retryAfter, Reason: c.name}
			}
		}
	}
	if !rejected.Allowed {
		return rejected
	}

	// All windows under quota: increment together so a rejection never
	// leaves a partial count behind.
	u.minute.count++
	u.hour.count++
	u.day.count++
	return Decision{Allowed: true}
}

// Sweep removes identity keys whose every window has expired, bounding
// memory growth over long-running processes.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, u := range l.usage {
		if now.After(u.minute.resetAt) && now.After(u.hour.resetAt) && now.After(u.day.resetAt) {
			delete(l.usage, key)
			removed++
		}
	}
	return removed
}

// Tracked reports how many identity keys currently hold windows.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.usage)
}
