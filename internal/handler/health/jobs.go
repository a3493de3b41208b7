package health

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dwarvesf/escrow-history/internal/monitoring"
)

// criticalJobs turn the report unhealthy after repeated failures. Other
// failing jobs only degrade it.
var criticalJobs = []string{
	monitoring.JobIndexWatchedEscrows,
}

// Jobs handles the background jobs health check endpoint
// @Summary Background jobs health check
// @Description Reports background job status
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} JobsHealthResponse
// @Success 206 {object} JobsHealthResponse
// @Failure 503 {object} JobsHealthResponse
// @Router /api/v1/health/jobs [get]
func (h *HealthHandler) Jobs(c *gin.Context) {
	start := time.Now()
	resp := JobsHealthResponse{
		Status: statusUnhealthy,
		Jobs:   map[string]monitoring.JobStatus{},
	}

	if h.jobStatusManager != nil {
		resp.Jobs = h.jobStatusManager.GetAllJobStatuses()
		resp.Summary = h.jobStatusManager.GetJobsSummary()
		resp.Status = jobsVerdict(resp.Jobs, resp.Summary)

		h.logger.Debug("[Jobs] health check completed", map[string]string{
			"status":         resp.Status,
			"total_jobs":     strconv.Itoa(resp.Summary.TotalJobs),
			"unhealthy_jobs": strconv.Itoa(resp.Summary.UnhealthyJobs),
			"stalled_jobs":   strconv.Itoa(resp.Summary.StalledJobs),
		})
	}

	resp.Timestamp = time.Now()
	resp.DurationMs = time.Since(start).Milliseconds()
	c.JSON(httpStatusOf(resp.Status), resp)
}

// jobsVerdict is unhealthy when any job stalled or a critical job failed
// more than twice in a row, and degraded when anything else failed.
func jobsVerdict(jobs map[string]monitoring.JobStatus, summary monitoring.JobsSummary) string {
	if summary.StalledJobs > 0 {
		return statusUnhealthy
	}
	if summary.UnhealthyJobs == 0 {
		return statusHealthy
	}
	for _, name := range criticalJobs {
		job, ok := jobs[name]
		if ok && job.Status == monitoring.JobStatusFailed && job.ConsecutiveFailures > 2 {
			return statusUnhealthy
		}
	}
	return statusDegraded
}
