package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"content-moderation-go/internal/model"
	"content-moderation-go/internal/moderation"
)

// SubmitText accepts a text snippet for moderation
func (h *Handlers) SubmitText(c *gin.Context) {
	var req SubmitTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
		})
		return
	}

	h.submit(c, req.EmailID, model.ContentKindText, req.TextContent)
}

// SubmitImage accepts a base64 encoded image for moderation
func (h *Handlers) SubmitImage(c *gin.Context) {
	var req SubmitImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
		})
		return
	}

	h.submit(c, req.EmailID, model.ContentKindImage, req.ImageData)
}

// submit runs the shared submission flow. New content answers 202 because
// classification happens in the background; known content answers 200 with
// the existing request.
func (h *Handlers) submit(c *gin.Context, submitter string, kind model.ContentKind, content string) {
	req, created, err := h.orchestrator.Submit(submitter, kind, content)
	if err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: err.Error(),
				Code:    http.StatusBadRequest,
			})
			return
		}
		logrus.Errorf("Submission failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to accept submission",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	response := SubmitResponse{
		RequestID:   req.ID,
		Status:      req.Status,
		ContentHash: req.ContentHash,
		Duplicate:   !created,
	}
	if created {
		response.Message = "Submission accepted for moderation"
		c.JSON(http.StatusAccepted, response)
		return
	}
	response.Message = "Content already submitted"
	c.JSON(http.StatusOK, response)
}

func isValidationError(err error) bool {
	return errors.Is(err, moderation.ErrEmptySubmitter) ||
		errors.Is(err, moderation.ErrEmptyContent) ||
		errors.Is(err, moderation.ErrInvalidContentKind) ||
		errors.Is(err, moderation.ErrInvalidImageData)
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid request ID",
			Code:    http.StatusBadRequest,
		})
		return 0, false
	}
	return uint(id), true
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
