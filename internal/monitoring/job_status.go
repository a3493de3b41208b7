package monitoring

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/dwarvesf/escrow-history/internal/escrow"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
)

type JobExecutionStatus string

const (
	JobStatusPending JobExecutionStatus = "pending"
	JobStatusRunning JobExecutionStatus = "running"
	JobStatusSuccess JobExecutionStatus = "success"
	JobStatusFailed  JobExecutionStatus = "failed"
	JobStatusStalled JobExecutionStatus = "stalled"
)

// JobStatus is the last known state of one background job as served by
// /health/jobs.
type JobStatus struct {
	JobName             string                 `json:"job_name"`
	Status              JobExecutionStatus     `json:"status"`
	LastRunTime         time.Time              `json:"last_run_time"`
	LastDuration        time.Duration          `json:"last_duration_ms"`
	SuccessCount        int64                  `json:"success_count"`
	FailureCount        int64                  `json:"failure_count"`
	ConsecutiveFailures int64                  `json:"consecutive_failures"`
	LastError           string                 `json:"last_error,omitempty"`
	AverageExecution    time.Duration          `json:"average_execution_ms"`
	MaxExecutionTime    time.Duration          `json:"max_execution_ms"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

type JobsSummary struct {
	TotalJobs      int       `json:"total_jobs"`
	RunningJobs    int       `json:"running_jobs"`
	HealthyJobs    int       `json:"healthy_jobs"`
	UnhealthyJobs  int       `json:"unhealthy_jobs"`
	StalledJobs    int       `json:"stalled_jobs"`
	LastUpdateTime time.Time `json:"last_update_time"`
}

func (s *JobStatus) clone() JobStatus {
	c := *s
	c.Metadata = make(map[string]interface{}, len(s.Metadata))
	for k, v := range s.Metadata {
		c.Metadata[k] = v
	}
	return c
}

// finish folds one run of duration d into the counters.
func (s *JobStatus) finish(d time.Duration, err error, now time.Time) {
	runs := s.SuccessCount + s.FailureCount
	s.AverageExecution = (s.AverageExecution*time.Duration(runs) + d) / time.Duration(runs+1)
	s.LastDuration = d
	if d > s.MaxExecutionTime {
		s.MaxExecutionTime = d
	}
	s.UpdatedAt = now

	if err != nil {
		s.Status = JobStatusFailed
		s.FailureCount++
		s.ConsecutiveFailures++
		s.LastError = err.Error()
		s.Metadata["error_type"] = classifyJobError(err)
		return
	}
	s.Status = JobStatusSuccess
	s.SuccessCount++
	s.ConsecutiveFailures = 0
	s.LastError = ""
	delete(s.Metadata, "error_type")
}

// JobStatusManager tracks background jobs. It is safe for concurrent use.
type JobStatusManager struct {
	mu       sync.RWMutex
	statuses map[string]*JobStatus
	logger   *logger.Logger
	metrics  *BackgroundJobMetrics
	now      func() time.Time

	stalledAfter time.Duration
	forgetAfter  time.Duration
}

func NewJobStatusManager(logger *logger.Logger, metrics *BackgroundJobMetrics) *JobStatusManager {
	return &JobStatusManager{
		statuses:     make(map[string]*JobStatus),
		logger:       logger,
		metrics:      metrics,
		now:          time.Now,
		stalledAfter: 15 * time.Minute,
		forgetAfter:  24 * time.Hour,
	}
}

// Run marks stalled jobs every minute and forgets idle statuses hourly,
// until ctx is done.
func (jsm *JobStatusManager) Run(ctx context.Context) {
	stalled := time.NewTicker(time.Minute)
	defer stalled.Stop()
	cleanup := time.NewTicker(time.Hour)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stalled.C:
			jsm.detectStalledJobs(jsm.now())
		case <-cleanup.C:
			jsm.cleanupOldStatuses(jsm.now())
		}
	}
}

// entry returns the status for name, creating it when missing. Callers hold
// jsm.mu.
func (jsm *JobStatusManager) entry(name string) (*JobStatus, bool) {
	if s, ok := jsm.statuses[name]; ok {
		return s, false
	}
	now := jsm.now()
	s := &JobStatus{
		JobName:   name,
		Status:    JobStatusPending,
		Metadata:  make(map[string]interface{}),
		CreatedAt: now,
		UpdatedAt: now,
	}
	jsm.statuses[name] = s
	return s, true
}

func (jsm *JobStatusManager) RegisterJob(name string) {
	jsm.mu.Lock()
	defer jsm.mu.Unlock()

	if _, created := jsm.entry(name); created {
		jsm.logger.Info("[RegisterJob] job registered for monitoring", map[string]string{
			"job_name": name,
		})
	}
}

func (jsm *JobStatusManager) StartJob(name string) {
	jsm.mu.Lock()
	defer jsm.mu.Unlock()

	s, _ := jsm.entry(name)
	now := jsm.now()
	s.Status = JobStatusRunning
	s.LastRunTime = now
	s.UpdatedAt = now
	jsm.metrics.activeJobs.Inc()
}

// CompleteJob records the outcome of the run started by StartJob. metadata
// is merged into the job's metadata.
func (jsm *JobStatusManager) CompleteJob(name string, err error, metadata map[string]interface{}) {
	jsm.mu.Lock()
	defer jsm.mu.Unlock()

	s, ok := jsm.statuses[name]
	if !ok {
		jsm.logger.Error("[CompleteJob] unregistered job", map[string]string{
			"job_name": name,
		})
		return
	}
	for k, v := range metadata {
		s.Metadata[k] = v
	}

	now := jsm.now()
	d := now.Sub(s.LastRunTime)
	s.finish(d, err, now)
	jsm.metrics.activeJobs.Dec()

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	jsm.metrics.jobRuns.WithLabelValues(name, outcome).Inc()
	jsm.metrics.jobDuration.WithLabelValues(name, outcome).Observe(d.Seconds())

	if err != nil {
		jsm.logger.Error("[CompleteJob] job failed", map[string]string{
			"job_name":             name,
			"duration":             d.String(),
			"error":                err.Error(),
			"consecutive_failures": strconv.FormatInt(s.ConsecutiveFailures, 10),
		})
		return
	}
	jsm.logger.Info("[CompleteJob] job completed", map[string]string{
		"job_name": name,
		"duration": d.String(),
	})
}

func (jsm *JobStatusManager) GetJobStatus(name string) (*JobStatus, bool) {
	jsm.mu.RLock()
	defer jsm.mu.RUnlock()

	s, ok := jsm.statuses[name]
	if !ok {
		return nil, false
	}
	c := s.clone()
	return &c, true
}

// GetAllJobStatuses reports running jobs past the stalled threshold as
// stalled even before the detector marks them.
func (jsm *JobStatusManager) GetAllJobStatuses() map[string]JobStatus {
	jsm.mu.RLock()
	defer jsm.mu.RUnlock()

	now := jsm.now()
	out := make(map[string]JobStatus, len(jsm.statuses))
	for name, s := range jsm.statuses {
		c := s.clone()
		if jsm.overdue(s, now) {
			c.Status = JobStatusStalled
		}
		out[name] = c
	}
	return out
}

func (jsm *JobStatusManager) GetJobsSummary() JobsSummary {
	statuses := jsm.GetAllJobStatuses()
	summary := JobsSummary{
		TotalJobs:      len(statuses),
		LastUpdateTime: jsm.now(),
	}
	for _, s := range statuses {
		switch s.Status {
		case JobStatusRunning:
			summary.RunningJobs++
		case JobStatusSuccess, JobStatusPending:
			summary.HealthyJobs++
		case JobStatusFailed:
			summary.UnhealthyJobs++
		case JobStatusStalled:
			summary.StalledJobs++
		}
	}
	return summary
}

func (jsm *JobStatusManager) overdue(s *JobStatus, now time.Time) bool {
	return s.Status == JobStatusRunning && now.Sub(s.LastRunTime) > jsm.stalledAfter
}

func (jsm *JobStatusManager) detectStalledJobs(now time.Time) {
	jsm.mu.Lock()
	defer jsm.mu.Unlock()

	stalled := 0
	for name, s := range jsm.statuses {
		if jsm.overdue(s, now) {
			s.Status = JobStatusStalled
			s.UpdatedAt = now
			jsm.logger.Error("[detectStalledJobs] job stalled", map[string]string{
				"job_name":      name,
				"last_run_time": s.LastRunTime.Format(time.RFC3339),
				"running_for":   now.Sub(s.LastRunTime).String(),
			})
		}
		if s.Status == JobStatusStalled {
			stalled++
		}
	}
	jsm.metrics.stalledJobs.Set(float64(stalled))
}

func (jsm *JobStatusManager) cleanupOldStatuses(now time.Time) {
	jsm.mu.Lock()
	defer jsm.mu.Unlock()

	cutoff := now.Add(-jsm.forgetAfter)
	for name, s := range jsm.statuses {
		if s.Status != JobStatusRunning && s.UpdatedAt.Before(cutoff) {
			delete(jsm.statuses, name)
		}
	}
}

func classifyJobError(err error) string {
	var lqe *escrow.LedgerQueryError
	switch {
	case errors.Is(err, errJobTimedOut), errors.Is(err, context.DeadlineExceeded), errors.As(err, &lqe) && lqe.Retryable():
		return "timeout"
	case errors.Is(err, escrow.ErrLedgerQueryFailure):
		return "ledger"
	case errors.Is(err, gorm.ErrInvalidDB), errors.Is(err, gorm.ErrInvalidTransaction):
		return "database"
	case errors.Is(err, errJobPanicked):
		return "panic"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "database"), strings.Contains(msg, "sql"):
		return "database"
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return "network"
	default:
		return "unknown"
	}
}
