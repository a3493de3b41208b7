package monitoring

import "github.com/prometheus/client_golang/prometheus"

type BackgroundJobMetrics struct {
	jobDuration *prometheus.HistogramVec
	jobRuns     *prometheus.CounterVec
	jobTimeouts *prometheus.CounterVec
	activeJobs  prometheus.Gauge
	stalledJobs prometheus.Gauge
}

func NewBackgroundJobMetrics() *BackgroundJobMetrics {
	return &BackgroundJobMetrics{
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "escrow_history_job_duration_seconds",
			Help:    "Background job run time",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"job_name", "status"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escrow_history_job_runs_total",
			Help: "Background job runs by outcome",
		}, []string{"job_name", "status"}),
		jobTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escrow_history_job_timeouts_total",
			Help: "Background job runs cut off by their timeout",
		}, []string{"job_name"}),
		activeJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "escrow_history_jobs_active",
			Help: "Background jobs currently running",
		}),
		stalledJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "escrow_history_jobs_stalled",
			Help: "Background jobs running past the stalled threshold",
		}),
	}
}

func (m *BackgroundJobMetrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(m.jobDuration, m.jobRuns, m.jobTimeouts, m.activeJobs, m.stalledJobs)
}
