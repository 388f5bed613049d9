// Package jobmetrics instruments the background workers.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

// lagBuckets spans a healthy queue (sub-second) through a worker that was
// down for most of a shift.
var lagBuckets = []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600, 4 * 3600}

// Metrics holds the worker collectors.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	skipped  *prometheus.CounterVec
	lag      *prometheus.HistogramVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the collectors on registerer, or once on the default
// registerer when it is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = newMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return newMetrics(registerer)
}

func newMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_jobs_total",
			Help: "Job executions by job and status.",
		}, []string{"job", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_jobs_failures_total",
			Help: "Failed job executions by job.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odyssey_job_duration_seconds",
			Help:    "Job execution time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_jobs_skipped_total",
			Help: "Tasks acknowledged without side effects, by reason.",
		}, []string{"reason"}),
		lag: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odyssey_job_lag_seconds",
			Help:    "Time between the business event and the job handling it.",
			Buckets: lagBuckets,
		}, []string{"job"}),
	}
	registerer.MustRegister(m.runs, m.failures, m.duration, m.skipped, m.lag)
	return m
}

// Tracker times one job execution.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts timing a run of job.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records the outcome and returns err unchanged.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := statusSuccess
	if err != nil {
		status = statusFailure
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// ObserveLag records how long after since the job picked the event up.
// Zero times and clock skew into the future are ignored.
func (m *Metrics) ObserveLag(job string, since time.Time) {
	if m == nil || since.IsZero() {
		return
	}
	lag := time.Since(since)
	if lag < 0 {
		return
	}
	m.lag.WithLabelValues(job).Observe(lag.Seconds())
}

// AddSkipped counts a task acknowledged without writing anything.
func (m *Metrics) AddSkipped(reason string) {
	if m == nil || reason == "" {
		return
	}
	m.skipped.WithLabelValues(reason).Inc()
}

// SkippedCounter returns the skipped counter for reason.
func (m *Metrics) SkippedCounter(reason string) prometheus.Counter {
	return m.skipped.WithLabelValues(reason)
}

// FailureCounter returns the failure counter for job.
func (m *Metrics) FailureCounter(job string) prometheus.Counter {
	return m.failures.WithLabelValues(job)
}
