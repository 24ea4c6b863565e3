package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"content-moderation-go/internal/classifier"
	"content-moderation-go/internal/model"
	"content-moderation-go/internal/store"
	"content-moderation-go/internal/telemetry"
)

// Process runs one classification attempt for a request. It is safe to
// invoke any number of times: terminal requests are left alone, duplicate
// workers are arbitrated by the conditional status updates and the result
// uniqueness constraint, and a retryable classifier failure leaves the
// request in processing for the next attempt.
func (o *Orchestrator) Process(ctx context.Context, requestID uint) error {
	req, err := o.content.Get(requestID)
	if err != nil {
		return err
	}
	if req == nil {
		logrus.Warnf("Request %d no longer exists, skipping classification", requestID)
		return nil
	}
	if req.Status.Terminal() {
		return nil
	}

	if req.Status == model.StatusPending {
		if err := o.content.UpdateStatus(requestID, model.StatusPending, model.StatusProcessing); err != nil {
			if !errors.Is(err, store.ErrInvalidTransition) {
				return err
			}
			// Another worker advanced the request between the read and the
			// update. Surface the conflict, then re-read to decide.
			o.reportTransitionConflict(requestID, "start", err)
			fresh, rerr := o.content.Get(requestID)
			if rerr != nil {
				return rerr
			}
			if fresh == nil || fresh.Status.Terminal() {
				return nil
			}
		}
	}

	start := time.Now()
	verdict, cerr := o.gateway.Classify(ctx, req.ContentKind, req.Content)
	o.metrics.ClassificationTime.Observe(time.Since(start).Seconds())
	if cerr != nil {
		if errors.Is(cerr, classifier.ErrRejected) {
			logrus.Errorf("Classifier rejected request %d: %v", requestID, cerr)
			o.markFailed(requestID, cerr)
			return nil
		}
		logrus.Warnf("Classifier unavailable for request %d: %v", requestID, cerr)
		return cerr
	}

	res := &model.ModerationResult{
		RequestID:      requestID,
		Classification: verdict.Classification,
		Confidence:     verdict.Confidence,
		Reasoning:      verdict.Reasoning,
		RawResponse:    verdict.RawResponse,
	}
	if err := o.results.Put(res); err != nil {
		if !errors.Is(err, store.ErrDuplicateResult) {
			return err
		}
		// A previous attempt stored the result but may have died before
		// completing the request. Adopt the stored result and finish its
		// transition instead of classifying again.
		stored, gerr := o.results.GetByRequest(requestID)
		if gerr != nil {
			return gerr
		}
		if stored == nil {
			return fmt.Errorf("result for request %d disappeared after duplicate write", requestID)
		}
		res = stored
	}

	if err := o.content.UpdateStatus(requestID, model.StatusProcessing, model.StatusCompleted); err != nil {
		if !errors.Is(err, store.ErrInvalidTransition) {
			return err
		}
		// The request already reached a terminal state under another
		// worker; that worker owns the completion side effects.
		o.reportTransitionConflict(requestID, "complete", err)
		return nil
	}

	o.metrics.ClassificationSuccesses.Inc()
	logrus.Infof("Request %d classified as %s (confidence %.2f)", requestID, res.Classification, res.Confidence)

	o.onCompleted(req, res)
	return nil
}

// onCompleted runs after a verified transition to completed. Safe content
// ends here; anything else fans out one notification task per configured
// channel so each channel retries independently.
func (o *Orchestrator) onCompleted(req *model.ModerationRequest, res *model.ModerationResult) {
	if !res.Flagged() {
		logrus.Debugf("Request %d is safe, no notifications", req.ID)
		return
	}

	o.metrics.FlaggedContent.Inc()
	for _, channel := range o.dispatcher.Channels() {
		task := &notifyTask{orchestrator: o, requestID: req.ID, channel: channel}
		if _, err := o.runner.Enqueue(task); err != nil {
			// Notification is best effort relative to the moderation
			// decision; the request stays completed.
			logrus.Errorf("Failed to schedule %s notification for request %d: %v", channel, req.ID, err)
			telemetry.CaptureError(err, map[string]string{"stage": "notify-schedule", "request_id": itoa(req.ID)})
		}
	}
}

// markFailed drives a request to failed after a terminal classification
// error or an exhausted retry budget. A request still in pending is walked
// through processing so the transition table holds.
func (o *Orchestrator) markFailed(requestID uint, cause error) {
	req, err := o.content.Get(requestID)
	if err != nil {
		logrus.Errorf("Failed to load request %d while marking it failed: %v", requestID, err)
		return
	}
	if req == nil || req.Status.Terminal() {
		return
	}

	if req.Status == model.StatusPending {
		if err := o.content.UpdateStatus(requestID, model.StatusPending, model.StatusProcessing); err != nil {
			if !errors.Is(err, store.ErrInvalidTransition) {
				logrus.Errorf("Failed to advance request %d toward failed: %v", requestID, err)
				return
			}
			o.reportTransitionConflict(requestID, "fail", err)
		}
	}

	if err := o.content.UpdateStatus(requestID, model.StatusProcessing, model.StatusFailed); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			o.reportTransitionConflict(requestID, "fail", err)
		} else {
			logrus.Errorf("Failed to mark request %d as failed: %v", requestID, err)
		}
		return
	}

	o.metrics.ClassificationFailures.Inc()
	logrus.Errorf("Request %d failed: %v", requestID, cause)
	telemetry.CaptureError(cause, map[string]string{"stage": "classify", "request_id": itoa(requestID)})
}

// reportTransitionConflict surfaces a stale-state transition attempt. These
// indicate overlapping background tasks; the state machine already refused
// the write, but the occurrence itself must stay visible.
func (o *Orchestrator) reportTransitionConflict(requestID uint, stage string, err error) {
	logrus.Errorf("Transition conflict on request %d during %s: %v", requestID, stage, err)
	telemetry.CaptureError(err, map[string]string{"stage": stage, "request_id": itoa(requestID)})
}
