package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerCountsOutcomes(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("audit:verify").End(nil))
	errBoom := errors.New("boom")
	assert.ErrorIs(t, m.Track("audit:verify").End(errBoom), errBoom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("audit:verify", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("audit:verify", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("audit:verify")))
}

func TestObserveVerification(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveVerification(12, map[string]int{"chain_broken": 1, "content_tampered": 2}, false)
	assert.Equal(t, 12.0, testutil.ToFloat64(m.ledgerEntries))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.lastIntact))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.problems.WithLabelValues("content_tampered")))

	m.ObserveVerification(13, nil, true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lastIntact))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveVerification(1, nil, true)
	assert.NoError(t, m.Track("noop").End(nil))
}
