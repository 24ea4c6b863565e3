package model

import "strings"

// ContentKind identifies what kind of content a moderation request carries
type ContentKind string

const (
	ContentKindText  ContentKind = "text"
	ContentKindImage ContentKind = "image"
)

// Valid reports whether the kind is one of the supported content kinds
func (k ContentKind) Valid() bool {
	return k == ContentKindText || k == ContentKindImage
}

// RequestStatus is the lifecycle state of a moderation request
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusProcessing RequestStatus = "processing"
	StatusCompleted  RequestStatus = "completed"
	StatusFailed     RequestStatus = "failed"
)

// Terminal reports whether the status admits no further transitions
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Known reports whether the status is one of the lifecycle states
func (s RequestStatus) Known() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// allowedTransitions is the full transition table. A request only ever moves
// pending -> processing -> completed|failed; terminal states have no successors.
var allowedTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// CanTransition reports whether moving from one status to another is legal
func CanTransition(from, to RequestStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Classification is a moderation verdict produced by the classifier
type Classification string

const (
	ClassificationSafe          Classification = "safe"
	ClassificationToxic         Classification = "toxic"
	ClassificationSpam          Classification = "spam"
	ClassificationHarassment    Classification = "harassment"
	ClassificationInappropriate Classification = "inappropriate"
)

// NormalizeClassification maps a raw classifier label onto a known verdict.
// Labels arrive in whatever casing the provider chose. Unrecognized labels
// flag rather than pass, so unknown output never slips through as safe.
func NormalizeClassification(label string) Classification {
	normalized := Classification(strings.ToLower(strings.TrimSpace(label)))
	switch normalized {
	case ClassificationSafe, ClassificationToxic, ClassificationSpam,
		ClassificationHarassment, ClassificationInappropriate:
		return normalized
	default:
		return ClassificationInappropriate
	}
}

// NotificationChannel identifies an outbound delivery channel
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelChat  NotificationChannel = "chat"
)

// Delivery status labels recorded in the notification log
const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)
