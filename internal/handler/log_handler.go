package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListNotifications returns the delivery log for one request, oldest
// attempt first. The log is append-only: every attempt is one entry.
func (h *Handlers) ListNotifications(c *gin.Context) {
	raw := c.Query("request_id")
	if raw == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "request_id query parameter is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid request ID",
			Code:    http.StatusBadRequest,
		})
		return
	}

	req, err := h.content.Get(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch request",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	if req == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Request not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	entries, err := h.notifications.ListByRequest(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch notification log",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	responses := make([]NotificationLogResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, toNotificationLogResponse(&entries[i]))
	}
	c.JSON(http.StatusOK, responses)
}
