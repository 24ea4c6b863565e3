package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"content-moderation-go/internal/model"
)

// ResultStore owns classification outcome rows, at most one per request
type ResultStore struct {
	db *gorm.DB
}

func NewResultStore(db *gorm.DB) *ResultStore {
	return &ResultStore{db: db}
}

// Put records a classification result. A second result for the same request
// violates the unique index and returns ErrDuplicateResult; existing rows
// are never overwritten.
func (s *ResultStore) Put(res *model.ModerationResult) error {
	result := s.db.Create(res)
	if result.Error == nil {
		return nil
	}
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: request %d", ErrDuplicateResult, res.RequestID)
	}
	return fmt.Errorf("failed to store result: %w", result.Error)
}

// GetByRequest returns the result for a request, or nil when none exists
func (s *ResultStore) GetByRequest(requestID uint) (*model.ModerationResult, error) {
	var res model.ModerationResult
	result := s.db.Where("request_id = ?", requestID).First(&res)
	if result.Error == nil {
		return &res, nil
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("database error loading result: %w", result.Error)
}
