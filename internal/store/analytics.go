package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"content-moderation-go/internal/model"
)

// SubmitterSummary is the derived analytics view for one submitter. It is
// computed from request and result rows on demand; the core tables carry no
// extra bookkeeping for it.
type SubmitterSummary struct {
	Submitter      string                    `json:"submitter"`
	Total          int64                     `json:"total_requests"`
	Safe           int64                     `json:"safe_count"`
	Flagged        int64                     `json:"flagged_count"`
	Pending        int64                     `json:"pending_count"`
	LastSubmission *time.Time                `json:"last_submission,omitempty"`
	Recent         []model.ModerationRequest `json:"recent_requests"`
}

// SubmitterSummary aggregates moderation activity for one submitter.
// Flagged counts every non-safe verdict; Pending counts requests that have
// not reached a terminal status yet.
func (s *ContentStore) SubmitterSummary(submitter string) (*SubmitterSummary, error) {
	summary := &SubmitterSummary{Submitter: submitter}

	result := s.db.Model(&model.ModerationRequest{}).
		Where("submitter = ?", submitter).
		Count(&summary.Total)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to count requests: %w", result.Error)
	}

	resultsBySubmitter := s.db.Model(&model.ModerationResult{}).
		Joins("JOIN moderation_requests ON moderation_requests.id = moderation_results.request_id").
		Where("moderation_requests.submitter = ?", submitter).
		Session(&gorm.Session{})

	if err := resultsBySubmitter.
		Where("moderation_results.classification = ?", model.ClassificationSafe).
		Count(&summary.Safe).Error; err != nil {
		return nil, fmt.Errorf("failed to count safe results: %w", err)
	}
	if err := resultsBySubmitter.
		Where("moderation_results.classification <> ?", model.ClassificationSafe).
		Count(&summary.Flagged).Error; err != nil {
		return nil, fmt.Errorf("failed to count flagged results: %w", err)
	}

	pending := []model.RequestStatus{model.StatusPending, model.StatusProcessing}
	result = s.db.Model(&model.ModerationRequest{}).
		Where("submitter = ? AND status IN ?", submitter, pending).
		Count(&summary.Pending)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to count pending requests: %w", result.Error)
	}

	recent, err := s.List(submitter, "", 10)
	if err != nil {
		return nil, err
	}
	summary.Recent = recent
	if len(recent) > 0 {
		last := recent[0].CreatedAt
		summary.LastSubmission = &last
	}

	return summary, nil
}
