package model

import (
	"time"
)

// ModerationResult is the classification outcome for a completed request.
// The unique index on RequestID enforces at most one result per request at
// the database level.
type ModerationResult struct {
	ID             uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	RequestID      uint           `json:"request_id" gorm:"not null;uniqueIndex"`
	Classification Classification `json:"classification" gorm:"type:varchar(32);not null"`
	Confidence     float64        `json:"confidence" gorm:"not null"`
	Reasoning      string         `json:"reasoning,omitempty" gorm:"type:text"`
	RawResponse    string         `json:"-" gorm:"type:text"`
	CreatedAt      time.Time      `json:"created_at"`
}

// TableName specifies the table name for ModerationResult
func (ModerationResult) TableName() string {
	return "moderation_results"
}

// Flagged reports whether the verdict should trigger notifications
func (r *ModerationResult) Flagged() bool {
	return r.Classification != ClassificationSafe
}
