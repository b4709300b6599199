package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics records outcomes of scheduled maintenance jobs.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	rows     *prometheus.CounterVec
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orderdesk_cron_job_duration_seconds",
		Help:    "Duration of cron jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderdesk_cron_job_runs_total",
		Help: "Cron job executions by result.",
	}, []string{"job", "result"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderdesk_cron_rows_deleted_total",
		Help: "Rows removed by retention jobs.",
	}, []string{"job"})
	reg.MustRegister(duration, runs, rows)
	return &CronJobMetrics{duration: duration, runs: runs, rows: rows}
}

func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncRun counts one execution; result is "success" or "failure".
func (c *CronJobMetrics) IncRun(job, result string) {
	if c == nil || c.runs == nil {
		return
	}
	c.runs.WithLabelValues(normalizeLabel(job), normalizeLabel(result)).Inc()
}

func (c *CronJobMetrics) AddRowsDeleted(job string, n int64) {
	if c == nil || c.rows == nil || n <= 0 {
		return
	}
	c.rows.WithLabelValues(normalizeLabel(job)).Add(float64(n))
}
