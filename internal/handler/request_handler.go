package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"content-moderation-go/internal/model"
)

// GetRequest returns a single moderation request with its result
func (h *Handlers) GetRequest(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	req, err := h.content.Get(id)
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

	c.JSON(http.StatusOK, toRequestResponse(req))
}

// ListRequests returns moderation requests newest first, filtered by the
// optional submitter and status query parameters
func (h *Handlers) ListRequests(c *gin.Context) {
	status := model.RequestStatus(c.Query("status"))
	if status != "" && !status.Known() {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Unknown status filter",
			Code:    http.StatusBadRequest,
		})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "Invalid limit",
				Code:    http.StatusBadRequest,
			})
			return
		}
		limit = parsed
	}

	reqs, err := h.content.List(c.Query("submitter"), status, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to list requests",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	responses := make([]RequestResponse, 0, len(reqs))
	for i := range reqs {
		responses = append(responses, toRequestResponse(&reqs[i]))
	}
	c.JSON(http.StatusOK, responses)
}

// DeleteRequest removes a request together with its result and delivery log
func (h *Handlers) DeleteRequest(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.content.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Request not found",
				Code:    http.StatusNotFound,
			})
			return
		}
		logrus.Errorf("Failed to delete request %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to delete request",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.Status(http.StatusNoContent)
}
