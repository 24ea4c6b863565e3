package model

import (
	"time"
)

// ModerationRequest represents a single piece of submitted content moving
// through the moderation lifecycle. The content hash is the dedup key: two
// submissions of identical content share one row.
type ModerationRequest struct {
	ID          uint          `json:"id" gorm:"primaryKey;autoIncrement"`
	Submitter   string        `json:"submitter" gorm:"type:varchar(255);not null;index"`
	ContentKind ContentKind   `json:"content_kind" gorm:"type:varchar(20);not null"`
	ContentHash string        `json:"content_hash" gorm:"type:varchar(64);not null;uniqueIndex"`
	Content     string        `json:"-" gorm:"type:text;not null"`
	Status      RequestStatus `json:"status" gorm:"type:varchar(20);not null;index;default:pending"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	Result        *ModerationResult      `json:"result,omitempty" gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
	Notifications []NotificationLogEntry `json:"-" gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for ModerationRequest
func (ModerationRequest) TableName() string {
	return "moderation_requests"
}
