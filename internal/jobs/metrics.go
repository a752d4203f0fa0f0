package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs          *prometheus.CounterVec
	failures      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	problems      *prometheus.CounterVec
	ledgerEntries prometheus.Gauge
	lastIntact    prometheus.Gauge
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// ObserveVerification records the outcome of one ledger verification run.
// problems maps a problem reason to its count.
func (m *Metrics) ObserveVerification(total int, problems map[string]int, intact bool) {
	if m == nil {
		return
	}
	for reason, count := range problems {
		if count > 0 {
			m.problems.WithLabelValues(reason).Add(float64(count))
		}
	}
	m.ledgerEntries.Set(float64(total))
	if intact {
		m.lastIntact.Set(1)
	} else {
		m.lastIntact.Set(0)
	}
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timeguard_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timeguard_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timeguard_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	problems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timeguard_ledger_verify_problems_total",
		Help: "Integrity problems reported by ledger verification, by reason.",
	}, []string{"reason"})
	entries := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timeguard_ledger_entries",
		Help: "Number of ledger entries seen by the last verification run.",
	})
	intact := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timeguard_ledger_intact",
		Help: "1 when the last verification run found no problem, 0 otherwise.",
	})
	registerer.MustRegister(runs, failures, duration, problems, entries, intact)
	return &Metrics{runs: runs, failures: failures, duration: duration, problems: problems, ledgerEntries: entries, lastIntact: intact}
}
