package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-wide Prometheus metrics for background jobs.
type Metrics struct {
	JobRuns        *prometheus.CounterVec
	JobSkipped     *prometheus.CounterVec
	JobDuration    *prometheus.HistogramVec
	JobItemsFailed *prometheus.CounterVec
}

// New creates and registers all scheduler metrics.
func New() *Metrics {
	return &Metrics{
		JobRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "jobboard_scheduler_job_runs_total",
			Help: "Scheduler job executions by job and outcome",
		}, []string{"job", "outcome"}),
		JobSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "jobboard_scheduler_job_skipped_total",
			Help: "Scheduler ticks skipped because the previous run still held the lock",
		}, []string{"job"}),
		JobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobboard_scheduler_job_duration_seconds",
			Help:    "Scheduler job duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		JobItemsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "jobboard_scheduler_job_items_failed_total",
			Help: "Per-item failures inside scheduler batches",
		}, []string{"job"}),
	}
}

func (m *Metrics) ObserveRun(job, outcome string, elapsed time.Duration, failedItems int) {
	if m == nil {
		return
	}
	m.JobRuns.WithLabelValues(job, outcome).Inc()
	m.JobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
	if failedItems > 0 {
		m.JobItemsFailed.WithLabelValues(job).Add(float64(failedItems))
	}
}

func (m *Metrics) IncrementSkipped(job string) {
	if m == nil {
		return
	}
	m.JobSkipped.WithLabelValues(job).Inc()
}
