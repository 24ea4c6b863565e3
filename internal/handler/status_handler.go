package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GetQueueStatus returns background runner activity and the upcoming
// maintenance runs
func (h *Handlers) GetQueueStatus(c *gin.Context) {
	stats := h.orchestrator.QueueStats()

	response := QueueStatusResponse{
		Enqueued:  stats.Enqueued,
		Active:    stats.Active,
		Running:   stats.Running,
		Succeeded: stats.Succeeded,
		Failed:    stats.Failed,
		Retries:   stats.Retries,
	}

	if h.scheduler != nil && h.scheduler.IsRunning() {
		response.SchedulerRunning = true
		if next := h.scheduler.NextRetentionRun(); !next.IsZero() {
			response.NextRetentionRun = timePtr(next)
		}
		if next := h.scheduler.NextSweepRun(); !next.IsZero() {
			response.NextSweepRun = timePtr(next)
		}
	}

	c.JSON(http.StatusOK, response)
}

// TriggerMaintenance runs the maintenance jobs immediately instead of
// waiting for their schedules
func (h *Handlers) TriggerMaintenance(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "scheduler_unavailable",
			Message: "Maintenance scheduler is not configured",
			Code:    http.StatusServiceUnavailable,
		})
		return
	}

	if err := h.scheduler.RunOnce(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "scheduler_error",
			Message: "Failed to run maintenance jobs",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Maintenance jobs completed",
	})
}

// GetAnalyticsSummary returns per-submitter moderation counts and recent
// activity for the user named in the query
func (h *Handlers) GetAnalyticsSummary(c *gin.Context) {
	user := c.Query("user")
	if user == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "user query parameter is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	summary, err := h.content.SubmitterSummary(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to build analytics summary",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
