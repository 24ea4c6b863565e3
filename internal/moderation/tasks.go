package moderation

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"content-moderation-go/internal/model"
	"content-moderation-go/internal/telemetry"
)

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// classifyTask is the queued unit of background classification. Retries are
// owned by the runner; when the budget runs out the request is marked
// failed through the exhaustion hook.
type classifyTask struct {
	orchestrator *Orchestrator
	requestID    uint
}

func (t *classifyTask) Name() string {
	return fmt.Sprintf("classify-request-%d", t.requestID)
}

func (t *classifyTask) Run(ctx context.Context) error {
	return t.orchestrator.Process(ctx, t.requestID)
}

func (t *classifyTask) OnExhausted(ctx context.Context, lastErr error) {
	logrus.Errorf("Classification retries exhausted for request %d: %v", t.requestID, lastErr)
	t.orchestrator.markFailed(t.requestID, lastErr)
}

// notifyTask delivers a flagged verdict over a single channel. Each channel
// gets its own task so a failing webhook cannot starve a healthy mailbox.
type notifyTask struct {
	orchestrator *Orchestrator
	requestID    uint
	channel      model.NotificationChannel
}

func (t *notifyTask) Name() string {
	return fmt.Sprintf("notify-%s-request-%d", t.channel, t.requestID)
}

func (t *notifyTask) Run(ctx context.Context) error {
	o := t.orchestrator

	req, err := o.content.Get(t.requestID)
	if err != nil {
		return err
	}
	if req == nil {
		logrus.Warnf("Request %d was deleted before %s notification", t.requestID, t.channel)
		return nil
	}

	res, err := o.results.GetByRequest(t.requestID)
	if err != nil {
		return err
	}
	if res == nil {
		return fmt.Errorf("no result stored for request %d", t.requestID)
	}

	outcomes := o.dispatcher.Dispatch(ctx, req, res, []model.NotificationChannel{t.channel})
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			o.metrics.NotificationFailures.Inc()
			return outcome.Err
		}
		o.metrics.NotificationSuccesses.Inc()
	}
	return nil
}

// OnExhausted leaves the request completed: delivery attempts are recorded
// in the notification log and that log is the record of the failure.
func (t *notifyTask) OnExhausted(ctx context.Context, lastErr error) {
	logrus.Errorf("Notification retries exhausted for request %d on %s: %v", t.requestID, t.channel, lastErr)
	telemetry.CaptureError(lastErr, map[string]string{
		"stage":      "notify",
		"channel":    string(t.channel),
		"request_id": itoa(t.requestID),
	})
}
