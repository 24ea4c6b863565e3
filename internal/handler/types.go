package handler

import (
	"time"

	"content-moderation-go/internal/model"
)

// SubmitTextRequest is the request body for text moderation submissions
type SubmitTextRequest struct {
	EmailID     string `json:"email_id" binding:"required,email"`
	TextContent string `json:"text_content" binding:"required"`
}

// SubmitImageRequest is the request body for image moderation submissions.
// ImageData carries the base64 encoded image bytes.
type SubmitImageRequest struct {
	EmailID   string `json:"email_id" binding:"required,email"`
	ImageData string `json:"image_data" binding:"required"`
}

// SubmitResponse acknowledges a moderation submission. Duplicate reports
// whether the content was already known; in that case RequestID points at
// the existing request.
type SubmitResponse struct {
	RequestID   uint                `json:"request_id"`
	Status      model.RequestStatus `json:"status"`
	ContentHash string              `json:"content_hash"`
	Duplicate   bool                `json:"duplicate"`
	Message     string              `json:"message"`
}

// ResultResponse represents a stored classification verdict
type ResultResponse struct {
	Classification model.Classification `json:"classification"`
	Confidence     float64              `json:"confidence"`
	Reasoning      string               `json:"reasoning"`
	CreatedAt      time.Time            `json:"created_at"`
}

// RequestResponse represents a moderation request with its result, if any
type RequestResponse struct {
	ID          uint                `json:"id"`
	Submitter   string              `json:"submitter"`
	ContentKind model.ContentKind   `json:"content_kind"`
	ContentHash string              `json:"content_hash"`
	Status      model.RequestStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Result      *ResultResponse     `json:"result,omitempty"`
}

// NotificationLogResponse represents one delivery attempt record
type NotificationLogResponse struct {
	ID        uint                      `json:"id"`
	RequestID uint                      `json:"request_id"`
	Channel   model.NotificationChannel `json:"channel"`
	Status    string                    `json:"status"`
	ErrorMsg  string                    `json:"error_msg,omitempty"`
	SentAt    time.Time                 `json:"sent_at"`
}

// QueueStatusResponse reports background runner activity and the next
// scheduled maintenance runs
type QueueStatusResponse struct {
	Enqueued         int        `json:"enqueued"`
	Active           int        `json:"active"`
	Running          int        `json:"running"`
	Succeeded        int        `json:"succeeded"`
	Failed           int        `json:"failed"`
	Retries          int        `json:"retries"`
	SchedulerRunning bool       `json:"scheduler_running"`
	NextRetentionRun *time.Time `json:"next_retention_run,omitempty"`
	NextSweepRun     *time.Time `json:"next_sweep_run,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Database  string            `json:"database"`
	Metrics   map[string]string `json:"metrics,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func toResultResponse(res *model.ModerationResult) *ResultResponse {
	if res == nil {
		return nil
	}
	return &ResultResponse{
		Classification: res.Classification,
		Confidence:     res.Confidence,
		Reasoning:      res.Reasoning,
		CreatedAt:      res.CreatedAt,
	}
}

func toRequestResponse(req *model.ModerationRequest) RequestResponse {
	return RequestResponse{
		ID:          req.ID,
		Submitter:   req.Submitter,
		ContentKind: req.ContentKind,
		ContentHash: req.ContentHash,
		Status:      req.Status,
		CreatedAt:   req.CreatedAt,
		UpdatedAt:   req.UpdatedAt,
		Result:      toResultResponse(req.Result),
	}
}

func toNotificationLogResponse(entry *model.NotificationLogEntry) NotificationLogResponse {
	return NotificationLogResponse{
		ID:        entry.ID,
		RequestID: entry.RequestID,
		Channel:   entry.Channel,
		Status:    entry.Status,
		ErrorMsg:  entry.ErrorMsg,
		SentAt:    entry.SentAt,
	}
}
