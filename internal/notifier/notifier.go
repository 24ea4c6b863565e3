// Package notifier delivers moderation alerts over the configured outbound
// channels and records every delivery attempt in the notification log.
package notifier

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"content-moderation-go/internal/model"
	"content-moderation-go/internal/store"
)

// Notifier delivers one alert on one channel
type Notifier interface {
	Channel() model.NotificationChannel
	Send(ctx context.Context, req *model.ModerationRequest, res *model.ModerationResult) error
}

// DeliveryOutcome is the observed result of a single delivery attempt
type DeliveryOutcome struct {
	Channel model.NotificationChannel
	Status  string
	Err     error
}

// Dispatcher fans alerts out across channels. Each channel is attempted
// independently: one channel failing never stops the others, and every
// attempt lands in the notification log whatever its outcome. The
// dispatcher itself never retries; the task runner owns that.
type Dispatcher struct {
	notifiers map[model.NotificationChannel]Notifier
	log       *store.NotificationStore
}

// NewDispatcher builds a dispatcher over the given channel notifiers
func NewDispatcher(log *store.NotificationStore, notifiers ...Notifier) *Dispatcher {
	byChannel := make(map[model.NotificationChannel]Notifier, len(notifiers))
	for _, n := range notifiers {
		byChannel[n.Channel()] = n
	}
	return &Dispatcher{notifiers: byChannel, log: log}
}

// Channels lists the configured channels in stable order
func (d *Dispatcher) Channels() []model.NotificationChannel {
	channels := make([]model.NotificationChannel, 0, len(d.notifiers))
	for c := range d.notifiers {
		channels = append(channels, c)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })
	return channels
}

// Dispatch attempts delivery on each requested channel and appends one log
// entry per attempt. The returned outcomes mirror the log; callers decide
// what a failure means (the background retry task treats it as retryable,
// the request's lifecycle state never changes because of it).
func (d *Dispatcher) Dispatch(ctx context.Context, req *model.ModerationRequest, res *model.ModerationResult, channels []model.NotificationChannel) []DeliveryOutcome {
	outcomes := make([]DeliveryOutcome, 0, len(channels))
	for _, channel := range channels {
		outcomes = append(outcomes, d.deliver(ctx, req, res, channel))
	}
	return outcomes
}

func (d *Dispatcher) deliver(ctx context.Context, req *model.ModerationRequest, res *model.ModerationResult, channel model.NotificationChannel) DeliveryOutcome {
	outcome := DeliveryOutcome{Channel: channel, Status: model.DeliverySent}

	n, ok := d.notifiers[channel]
	if !ok {
		outcome.Status = model.DeliveryFailed
		outcome.Err = &UnconfiguredChannelError{Channel: channel}
	} else if err := n.Send(ctx, req, res); err != nil {
		outcome.Status = model.DeliveryFailed
		outcome.Err = err
		logrus.Errorf("Delivery on channel %s failed for request %d: %v", channel, req.ID, err)
	} else {
		logrus.Infof("Delivery on channel %s succeeded for request %d", channel, req.ID)
	}

	errMsg := ""
	if outcome.Err != nil {
		errMsg = outcome.Err.Error()
	}
	// The attempt happened either way, so a log write failure must not turn
	// into a delivery retry; it is reported and swallowed.
	if err := d.log.LogDeliveryAttempt(req.ID, channel, outcome.Status, errMsg); err != nil {
		logrus.Errorf("Failed to record delivery attempt for request %d on %s: %v", req.ID, channel, err)
	}
	return outcome
}

// UnconfiguredChannelError reports a dispatch against a channel with no
// configured notifier
type UnconfiguredChannelError struct {
	Channel model.NotificationChannel
}

func (e *UnconfiguredChannelError) Error() string {
	return "no notifier configured for channel " + string(e.Channel)
}
