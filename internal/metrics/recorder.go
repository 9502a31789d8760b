package metrics

import "time"

// Recorder defines observability hooks for discovery passes and
// submissions. Implementations may forward to Prometheus or stay silent;
// components receive a Recorder by injection and default to NoopRecorder.
type Recorder interface {
	ObservePassDuration(d time.Duration)
	IncPassOutcome(outcome string) // success|partial|failed
	AddCommitsDiscovered(n int)
	AddCommitsMatched(n int)
	IncSubmission(outcome string)
	IncRateLimited()
}

// NoopRecorder is the default Recorder when metrics are not configured.
type NoopRecorder struct{}

func (NoopRecorder) ObservePassDuration(time.Duration) {}
func (NoopRecorder) IncPassOutcome(string)             {}
func (NoopRecorder) AddCommitsDiscovered(int)          {}
func (NoopRecorder) AddCommitsMatched(int)             {}
func (NoopRecorder) IncSubmission(string)              {}
func (NoopRecorder) IncRateLimited()                   {}
