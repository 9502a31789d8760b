package quota

import (
	"testing"
	"time"
)

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

// TestMinuteWindowBoundary: with a minute max of 10, the 10th call in a
// fresh window is allowed and the 11th is rejected with a positive retry
// hint; after the window resets, the next call is allowed again.
func TestMinuteWindowBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiterAt(Limits{PerMinute: 10, PerHour: 100, PerDay: 1000}, fixedClock(&now))

	for i := 0; i < 10; i++ {
		if d := l.Check("0xPrincipal"); !d.Allowed {
			t.Fatalf("call %d should be allowed, got %+v", i+1, d)
		}
	}

	d := l.Check("0xPrincipal")
	if d.Allowed {
		t.Fatal("11th call should be rejected")
	}
	if d.RetryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %v", d.RetryAfter)
	}
	if d.Reason != WindowMinute {
		t.Fatalf("expected minute window reason, got %q", d.Reason)
	}

	now = now.Add(61 * time.Second)
	if d := l.Check("0xPrincipal"); !d.Allowed {
		t.Fatalf("call after reset should be allowed, got %+v", d)
	}
}

// TestKeysAreCaseInsensitive verifies that the key is canonicalized.
func TestKeysAreCaseInsensitive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiterAt(Limits{PerMinute: 1, PerHour: 10, PerDay: 10}, fixedClock(&now))

	if d := l.Check("0xABCDEF"); !d.Allowed {
		t.Fatalf("first call rejected: %+v", d)
	}
	if d := l.Check("0xabcdef"); d.Allowed {
		t.Fatal("same key with different case should share the window")
	}
}

// TestNoPartialIncrementOnReject verifies a rejection moves no counters:
// once the minute window is exhausted, repeated rejected calls do not eat
// into the hour window.
func TestNoPartialIncrementOnReject(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiterAt(Limits{PerMinute: 1, PerHour: 2, PerDay: 10}, fixedClock(&now))

	if d := l.Check("key"); !d.Allowed {
		t.Fatalf("first call rejected: %+v", d)
	}
	for i := 0; i < 5; i++ {
		if d := l.Check("key"); d.Allowed {
			t.Fatal("minute window should reject")
		}
	}

	// Minute resets; the hour window must still have one slot left.
	now = now.Add(2 * time.Minute)
	if d := l.Check("key"); !d.Allowed {
		t.Fatalf("hour window was drained by rejected calls: %+v", d)
	}
	// Hour quota of 2 is now spent.
	now = now.Add(2 * time.Minute)
	d := l.Check("key")
	if d.Allowed || d.Reason != WindowHour {
		t.Fatalf("expected hour rejection, got %+v", d)
	}
}

// TestTightestWindowWins: when several windows are exhausted, the rejection
// reports the soonest-resetting one.
func TestTightestWindowWins(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiterAt(Limits{PerMinute: 1, PerHour: 1, PerDay: 1}, fixedClock(&now))

	if d := l.Check("key"); !d.Allowed {
		t.Fatalf("first call rejected: %+v", d)
	}
	d := l.Check("key")
	if d.Allowed {
		t.Fatal("expected rejection")
	}
	if d.Reason != WindowMinute {
		t.Fatalf("expected minute (soonest reset), got %q", d.Reason)
	}
	if d.RetryAfter > time.Minute {
		t.Fatalf("retry-after should come from the minute window, got %v", d.RetryAfter)
	}
}

// TestSweepDropsExpiredKeys bounds memory for long-running processes.
func TestSweepDropsExpiredKeys(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiterAt(Limits{PerMinute: 5, PerHour: 5, PerDay: 5}, fixedClock(&now))

	l.Check("a")
	l.Check("b")
	if l.Tracked() != 2 {
		t.Fatalf("expected 2 tracked keys, got %d", l.Tracked())
	}

	if removed := l.Sweep(); removed != 0 {
		t.Fatalf("nothing should be swept yet, removed %d", removed)
	}

	now = now.Add(25 * time.Hour)
	if removed := l.Sweep(); removed != 2 {
		t.Fatalf("expected 2 swept keys, removed %d", removed)
	}
	if l.Tracked() != 0 {
		t.Fatalf("expected 0 tracked keys, got %d", l.Tracked())
	}
}
