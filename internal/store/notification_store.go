package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"content-moderation-go/internal/model"
)

// NotificationStore owns the append-only delivery audit trail. Every
// delivery attempt writes a new row; nothing here deduplicates or updates.
type NotificationStore struct {
	db *gorm.DB
}

func NewNotificationStore(db *gorm.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// LogDeliveryAttempt appends one delivery attempt for one channel
func (s *NotificationStore) LogDeliveryAttempt(requestID uint, channel model.NotificationChannel, status, errorMsg string) error {
	entry := model.NotificationLogEntry{
		RequestID: requestID,
		Channel:   channel,
		Status:    status,
		ErrorMsg:  errorMsg,
		SentAt:    time.Now(),
	}
	result := s.db.Create(&entry)
	if result.Error != nil {
		return fmt.Errorf("failed to log delivery attempt: %w", result.Error)
	}
	return nil
}

// ListByRequest returns all delivery attempts for a request, oldest first
func (s *NotificationStore) ListByRequest(requestID uint) ([]model.NotificationLogEntry, error) {
	var entries []model.NotificationLogEntry
	result := s.db.Where("request_id = ?", requestID).Order("id ASC").Find(&entries)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list notification log entries: %w", result.Error)
	}
	return entries, nil
}
