package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"content-moderation-go/internal/model"
)

// ContentStore owns moderation request rows and their status transitions.
// The unique index on content_hash is the single serialization point for
// concurrent submissions of the same content.
type ContentStore struct {
	db *gorm.DB
}

func NewContentStore(db *gorm.DB) *ContentStore {
	return &ContentStore{db: db}
}

// FindByFingerprint returns the request holding the given content hash, or
// nil when no such request exists.
func (s *ContentStore) FindByFingerprint(hash string) (*model.ModerationRequest, error) {
	var req model.ModerationRequest
	result := s.db.Where("content_hash = ?", hash).First(&req)
	if result.Error == nil {
		return &req, nil
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("database error looking up fingerprint: %w", result.Error)
}

// InsertIfAbsent creates the request unless a row with the same fingerprint
// already exists. The unique index arbitrates concurrent inserts: the loser
// reads the winner's row back and returns it with created=false instead of
// erroring. ErrDuplicateSubmissionRace only surfaces if that fallback read
// finds nothing.
func (s *ContentStore) InsertIfAbsent(req *model.ModerationRequest) (*model.ModerationRequest, bool, error) {
	result := s.db.Create(req)
	if result.Error == nil {
		return req, true, nil
	}
	if !errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return nil, false, fmt.Errorf("failed to insert request: %w", result.Error)
	}

	existing, err := s.FindByFingerprint(req.ContentHash)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("%w: fingerprint %s", ErrDuplicateSubmissionRace, req.ContentHash)
	}
	return existing, false, nil
}

// UpdateStatus moves a request from one status to another. The change is
// applied as a conditional update keyed on the expected prior status, so a
// delayed or duplicate background task cannot regress or double-apply a
// transition. Illegal transitions and stale expectations both return
// ErrInvalidTransition.
func (s *ContentStore) UpdateStatus(id uint, from, to model.RequestStatus) error {
	if !model.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	result := s.db.Model(&model.ModerationRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: request %d is not in status %s", ErrInvalidTransition, id, from)
	}
	return nil
}

// Get returns the request with its result preloaded, or nil when absent
func (s *ContentStore) Get(id uint) (*model.ModerationRequest, error) {
	var req model.ModerationRequest
	result := s.db.Preload("Result").First(&req, id)
	if result.Error == nil {
		return &req, nil
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("database error loading request: %w", result.Error)
}

// List returns requests newest first, optionally filtered by submitter and
// status. limit caps the page size; values outside (0, 200] fall back to 50.
func (s *ContentStore) List(submitter string, status model.RequestStatus, limit int) ([]model.ModerationRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := s.db.Model(&model.ModerationRequest{})
	if submitter != "" {
		query = query.Where("submitter = ?", submitter)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var reqs []model.ModerationRequest
	result := query.Order("created_at DESC").Limit(limit).Preload("Result").Find(&reqs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list requests: %w", result.Error)
	}
	return reqs, nil
}

// Delete removes a request together with its result and notification log
// entries in one transaction. Returns gorm.ErrRecordNotFound when the
// request does not exist.
func (s *ContentStore) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("request_id = ?", id).Delete(&model.NotificationLogEntry{}).Error; err != nil {
			return fmt.Errorf("failed to delete notification log entries: %w", err)
		}
		if err := tx.Where("request_id = ?", id).Delete(&model.ModerationResult{}).Error; err != nil {
			return fmt.Errorf("failed to delete result: %w", err)
		}

		result := tx.Delete(&model.ModerationRequest{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete request: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// FindStale returns non-terminal requests that have not moved for longer
// than olderThan. These are requests whose background work was lost, for
// example across a process restart, and need to be re-queued.
func (s *ContentStore) FindStale(olderThan time.Duration) ([]model.ModerationRequest, error) {
	cutoff := time.Now().Add(-olderThan)
	active := []model.RequestStatus{model.StatusPending, model.StatusProcessing}

	var reqs []model.ModerationRequest
	result := s.db.Where("status IN ? AND updated_at < ?", active, cutoff).
		Order("updated_at ASC").
		Find(&reqs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find stale requests: %w", result.Error)
	}
	return reqs, nil
}

// DeleteTerminalOlderThan removes completed and failed requests whose last
// status change is older than maxAge, cascading to results and notification
// log entries. Returns the number of requests removed.
func (s *ContentStore) DeleteTerminalOlderThan(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	terminal := []model.RequestStatus{model.StatusCompleted, model.StatusFailed}

	var ids []uint
	result := s.db.Model(&model.ModerationRequest{}).
		Where("status IN ? AND updated_at < ?", terminal, cutoff).
		Pluck("id", &ids)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to find expired requests: %w", result.Error)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("request_id IN ?", ids).Delete(&model.NotificationLogEntry{}).Error; err != nil {
			return fmt.Errorf("failed to delete notification log entries: %w", err)
		}
		if err := tx.Where("request_id IN ?", ids).Delete(&model.ModerationResult{}).Error; err != nil {
			return fmt.Errorf("failed to delete results: %w", err)
		}
		if err := tx.Where("id IN ?", ids).Delete(&model.ModerationRequest{}).Error; err != nil {
			return fmt.Errorf("failed to delete requests: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}
