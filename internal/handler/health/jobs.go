package health

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pendulum-chain/vortex-sub005/internal/consts"
	"github.com/pendulum-chain/vortex-sub005/internal/monitoring"
)

// criticalJobs stop every flow from advancing when they fail.
var criticalJobs = []string{consts.RampTickJob}

// criticalFailureThreshold is the failure streak after which a critical job makes the service unhealthy.
const criticalFailureThreshold = 2

// jobsVerdict returns the overall status and the critical jobs that caused an unhealthy verdict.
// A stalled job or a critical job past its failure streak is unhealthy; any other failure degrades.
func jobsVerdict(jobs map[string]monitoring.JobStatus, summary monitoring.JobsSummary) (string, []string) {
	var failing []string
	for _, name := range criticalJobs {
		status, ok := jobs[name]
		if !ok {
			continue
		}
		switch {
		case status.Status == monitoring.JobStatusStalled:
			failing = append(failing, name)
		case status.Status == monitoring.JobStatusFailed && status.ConsecutiveFailures > criticalFailureThreshold:
			failing = append(failing, name)
		}
	}
	sort.Strings(failing)

	switch {
	case len(failing) > 0, summary.StalledJobs > 0:
		return "unhealthy", failing
	case summary.UnhealthyJobs > 0:
		return "degraded", nil
	}
	return "healthy", nil
}

// Jobs handles the background jobs health check endpoint
// @Summary Background jobs health check
// @Description Reports the ramp tick and other background jobs, and the ramps this process drives
// @Tags health
// @Produce json
// @Success 200 {object} JobsHealthResponse
// @Success 206 {object} JobsHealthResponse
// @Failure 503 {object} JobsHealthResponse
// @Router /api/v1/health/jobs [get]
func (h *HealthHandler) Jobs(c *gin.Context) {
	start := time.Now()

	response := JobsHealthResponse{
		Status:    "unhealthy",
		Timestamp: start,
		Jobs:      map[string]monitoring.JobStatus{},
	}
	if h.sessions != nil {
		response.ActiveRamps = h.sessions.Active()
	}

	if h.jobStatusManager == nil {
		response.DurationMs = time.Since(start).Milliseconds()
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	response.Jobs = h.jobStatusManager.GetAllJobStatuses()
	response.Summary = h.jobStatusManager.GetJobsSummary()
	response.Status, response.CriticalFailures = jobsVerdict(response.Jobs, response.Summary)
	response.DurationMs = time.Since(start).Milliseconds()

	statusCode := http.StatusOK
	switch response.Status {
	case "unhealthy":
		statusCode = http.StatusServiceUnavailable
	case "degraded":
		statusCode = http.StatusPartialContent
	}

	h.logger.Info("[HealthHandler.Jobs] jobs health check completed", map[string]string{
		"overall_status": response.Status,
		"duration_ms":    strconv.FormatInt(response.DurationMs, 10),
		"total_jobs":     strconv.Itoa(response.Summary.TotalJobs),
		"unhealthy_jobs": strconv.Itoa(response.Summary.UnhealthyJobs),
		"stalled_jobs":   strconv.Itoa(response.Summary.StalledJobs),
		"active_ramps":   strconv.Itoa(response.ActiveRamps),
	})

	c.JSON(statusCode, response)
}
