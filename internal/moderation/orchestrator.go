// Package moderation contains the request lifecycle engine: content
// fingerprinting and dedup, the pending -> processing -> completed|failed
// state machine, background classification, and alert dispatch for flagged
// content.
package moderation

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"content-moderation-go/internal/classifier"
	"content-moderation-go/internal/metrics"
	"content-moderation-go/internal/model"
	"content-moderation-go/internal/notifier"
	"content-moderation-go/internal/store"
	"content-moderation-go/internal/taskqueue"
	"content-moderation-go/internal/telemetry"
)

var (
	ErrInvalidContentKind = errors.New("invalid content kind")
	ErrEmptySubmitter     = errors.New("submitter must not be empty")
	ErrEmptyContent       = errors.New("content must not be empty")
	ErrInvalidImageData   = errors.New("image content must be base64 encoded")
)

// Orchestrator drives moderation requests through their lifecycle. All
// status transitions go through the content store's conditional update;
// the orchestrator never mutates state it has not verified.
type Orchestrator struct {
	content    *store.ContentStore
	results    *store.ResultStore
	dispatcher *notifier.Dispatcher
	gateway    classifier.Gateway
	runner     *taskqueue.Runner
	metrics    *metrics.Metrics

	// recentFingerprints short-circuits repeat submissions of content seen
	// moments ago without a database round trip. The database unique index
	// stays the source of truth; this is purely a hot-path cache.
	recentFingerprints *cache.Cache
}

// NewOrchestrator wires the lifecycle engine
func NewOrchestrator(content *store.ContentStore, results *store.ResultStore, dispatcher *notifier.Dispatcher, gateway classifier.Gateway, runner *taskqueue.Runner, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		content:            content,
		results:            results,
		dispatcher:         dispatcher,
		gateway:            gateway,
		runner:             runner,
		metrics:            m,
		recentFingerprints: cache.New(10*time.Minute, 20*time.Minute),
	}
}

// Fingerprint computes the content-addressed dedup key: the SHA-256 digest
// of the raw content, hex encoded. Identical content always maps to the
// same fingerprint regardless of kind or submitter.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Submit accepts a moderation submission. First-seen content creates a
// pending request and schedules classification; re-submitted content
// returns the existing request untouched, no matter who submits it. The
// returned flag reports whether a new request was created.
func (o *Orchestrator) Submit(submitter string, kind model.ContentKind, content string) (*model.ModerationRequest, bool, error) {
	if submitter == "" {
		return nil, false, ErrEmptySubmitter
	}
	if !kind.Valid() {
		return nil, false, ErrInvalidContentKind
	}
	if content == "" {
		return nil, false, ErrEmptyContent
	}
	if kind == model.ContentKindImage {
		if _, err := base64.StdEncoding.DecodeString(content); err != nil {
			return nil, false, ErrInvalidImageData
		}
	}

	fingerprint := Fingerprint(content)

	if existing, err := o.lookupCached(fingerprint); err != nil {
		return nil, false, err
	} else if existing != nil {
		o.metrics.DuplicateSubmissions.Inc()
		return existing, false, nil
	}

	if existing, err := o.content.FindByFingerprint(fingerprint); err != nil {
		return nil, false, err
	} else if existing != nil {
		o.rememberFingerprint(existing)
		o.metrics.DuplicateSubmissions.Inc()
		return existing, false, nil
	}

	req := &model.ModerationRequest{
		Submitter:   submitter,
		ContentKind: kind,
		ContentHash: fingerprint,
		Content:     content,
		Status:      model.StatusPending,
	}

	winner, created, err := o.content.InsertIfAbsent(req)
	if err != nil {
		return nil, false, err
	}
	o.rememberFingerprint(winner)
	if !created {
		o.metrics.DuplicateSubmissions.Inc()
		return winner, false, nil
	}

	o.metrics.SubmissionsTotal.Inc()
	logrus.Infof("Accepted %s submission from %s as request %d", kind, submitter, winner.ID)

	o.scheduleClassification(winner.ID)
	return winner, true, nil
}

// scheduleClassification enqueues the background classification task. A
// full or stopped queue does not fail the submission: the request stays
// pending and the stale sweep picks it up later.
func (o *Orchestrator) scheduleClassification(requestID uint) {
	if _, err := o.runner.Enqueue(&classifyTask{orchestrator: o, requestID: requestID}); err != nil {
		logrus.Errorf("Failed to schedule classification for request %d: %v", requestID, err)
		telemetry.CaptureError(err, map[string]string{"stage": "schedule", "request_id": itoa(requestID)})
	}
}

// RequeueStale re-enqueues classification for requests sitting in a
// non-terminal status with no progress for olderThan. This heals requests
// orphaned by crashes or by a full queue at submission time.
func (o *Orchestrator) RequeueStale(olderThan time.Duration) (int, error) {
	stale, err := o.content.FindStale(olderThan)
	if err != nil {
		return 0, err
	}
	for i := range stale {
		o.scheduleClassification(stale[i].ID)
	}
	if len(stale) > 0 {
		logrus.Infof("Requeued %d stale moderation requests", len(stale))
	}
	return len(stale), nil
}

// QueueStats exposes the background runner's activity snapshot
func (o *Orchestrator) QueueStats() taskqueue.Stats {
	return o.runner.Stats()
}

func (o *Orchestrator) lookupCached(fingerprint string) (*model.ModerationRequest, error) {
	id, found := o.recentFingerprints.Get(fingerprint)
	if !found {
		return nil, nil
	}
	req, err := o.content.Get(id.(uint))
	if err != nil {
		return nil, err
	}
	if req == nil {
		// The request was deleted since it was cached.
		o.recentFingerprints.Delete(fingerprint)
		return nil, nil
	}
	return req, nil
}

func (o *Orchestrator) rememberFingerprint(req *model.ModerationRequest) {
	o.recentFingerprints.Set(req.ContentHash, req.ID, cache.DefaultExpiration)
}
