package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	passDuration      prom.Histogram
	passOutcomes      *prom.CounterVec
	commitsDiscovered prom.Counter
	commitsMatched    prom.Counter
	submissions       *prom.CounterVec
	rateLimited       prom.Counter
}

// NewPrometheusRecorder constructs and registers the attestbot metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		passDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "attestbot",
			Name:      "pass_duration_seconds",
			Help:      "Duration of one full discovery/submission pass",
			Buckets:   prom.DefBuckets,
		}),
		passOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "attestbot",
			Name:      "pass_outcomes_total",
			Help:      "Pass outcomes by final status",
		}, []string{"outcome"}),
		commitsDiscovered: prom.NewCounter(prom.CounterOpts{
			Namespace: "attestbot",
			Name:      "commits_discovered_total",
			Help:      "Commits fetched from forges before dedup and matching",
		}),
		commitsMatched: prom.NewCounter(prom.CounterOpts{
			Namespace: "attestbot",
			Name:      "commits_matched_total",
			Help:      "Commits matched to a registered identity",
		}),
		submissions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "attestbot",
			Name:      "submissions_total",
			Help:      "Submission terminal outcomes",
		}, []string{"outcome"}),
		rateLimited: prom.NewCounter(prom.CounterOpts{
			Namespace: "attestbot",
			Name:      "rate_limited_total",
			Help:      "Matched commits skipped by the per-identity rate limiter",
		}),
	}
	reg.MustRegister(pr.passDuration, pr.passOutcomes, pr.commitsDiscovered,
		pr.commitsMatched, pr.submissions, pr.rateLimited)
	return pr
}

func (p *PrometheusRecorder) ObservePassDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.passDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPassOutcome(outcome string) {
	if p == nil {
		return
	}
	p.passOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) AddCommitsDiscovered(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.commitsDiscovered.Add(float64(n))
}

func (p *PrometheusRecorder) AddCommitsMatched(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.commitsMatched.Add(float64(n))
}

func (p *PrometheusRecorder) IncSubmission(outcome string) {
	if p == nil {
		return
	}
	p.submissions.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncRateLimited() {
	if p == nil {
		return
	}
	p.rateLimited.Inc()
}
