package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObservePassDuration(time.Second)
	r.IncPassOutcome("success")
	r.AddCommitsDiscovered(3)
	r.AddCommitsMatched(2)
	r.IncSubmission("attested")
	r.IncRateLimited()
}

func TestPrometheusRecorderCounts(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.AddCommitsDiscovered(5)
	r.AddCommitsDiscovered(0) // no-op
	r.AddCommitsMatched(2)
	r.IncSubmission("attested")
	r.IncSubmission("attested")
	r.IncSubmission("rejected")
	r.IncRateLimited()
	r.IncPassOutcome("success")
	r.ObservePassDuration(250 * time.Millisecond)

	assert.Equal(t, 5.0, testutil.ToFloat64(r.commitsDiscovered))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.commitsMatched))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.submissions.WithLabelValues("attested")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.submissions.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rateLimited))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var r *PrometheusRecorder
	r.ObservePassDuration(time.Second)
	r.IncSubmission("attested")
	r.IncRateLimited()
}
