package model

import (
	"time"
)

// NotificationLogEntry records one delivery attempt on one channel. The log
// is append-only: retries write new rows rather than updating old ones, so
// multiple entries per (request, channel) are expected.
type NotificationLogEntry struct {
	ID        uint                `json:"id" gorm:"primaryKey;autoIncrement"`
	RequestID uint                `json:"request_id" gorm:"not null;index"`
	Channel   NotificationChannel `json:"channel" gorm:"type:varchar(20);not null"`
	Status    string              `json:"status" gorm:"type:varchar(50);not null"`
	ErrorMsg  string              `json:"error_msg,omitempty" gorm:"type:text"`
	SentAt    time.Time           `json:"sent_at"`
}

// TableName specifies the table name for NotificationLogEntry
func (NotificationLogEntry) TableName() string {
	return "notification_logs"
}
