package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"content-moderation-go/internal/moderation"
	"content-moderation-go/internal/scheduler"
	"content-moderation-go/internal/store"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	db            *gorm.DB
	orchestrator  *moderation.Orchestrator
	content       *store.ContentStore
	notifications *store.NotificationStore
	scheduler     *scheduler.Scheduler
}

// NewHandlers creates new HTTP handlers
func NewHandlers(db *gorm.DB, orchestrator *moderation.Orchestrator, content *store.ContentStore, notifications *store.NotificationStore, s *scheduler.Scheduler) *Handlers {
	return &Handlers{
		db:            db,
		orchestrator:  orchestrator,
		content:       content,
		notifications: notifications,
		scheduler:     s,
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/moderate/text", h.SubmitText)
		api.POST("/moderate/image", h.SubmitImage)

		api.GET("/requests", h.ListRequests)
		api.GET("/requests/:id", h.GetRequest)
		api.DELETE("/requests/:id", h.DeleteRequest)

		api.GET("/notifications", h.ListNotifications)

		api.GET("/analytics/summary", h.GetAnalyticsSummary)
		api.GET("/queue/status", h.GetQueueStatus)
		api.POST("/maintenance/run", h.TriggerMaintenance)
	}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Database:  "ok",
		Metrics:   make(map[string]string),
	}

	if err := h.db.Raw("SELECT 1").Error; err != nil {
		response.Status = "error"
		response.Database = "error"
		logrus.Errorf("Database health check failed: %v", err)
	}

	if h.scheduler != nil && h.scheduler.IsRunning() {
		response.Metrics["scheduler"] = "running"
	} else {
		response.Metrics["scheduler"] = "stopped"
	}

	stats := h.orchestrator.QueueStats()
	response.Metrics["queue_active"] = formatInt(int64(stats.Active))
	response.Metrics["queue_running"] = formatInt(int64(stats.Running))

	statusCode := http.StatusOK
	if response.Status == "error" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}
