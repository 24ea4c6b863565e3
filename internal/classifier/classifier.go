// Package classifier abstracts the external AI moderation call behind a
// uniform gateway. Callers never see provider SDK types, only a
// ClassificationResult or one of the two error classes: ErrUnavailable is
// retryable, ErrRejected is terminal.
package classifier

import (
	"context"
	"errors"

	"content-moderation-go/internal/model"
)

var (
	// ErrUnavailable covers timeouts and transient provider failures; the
	// caller may retry.
	ErrUnavailable = errors.New("classifier unavailable")

	// ErrRejected means the provider refused the input itself; retrying the
	// same content cannot succeed.
	ErrRejected = errors.New("classifier rejected content")
)

// ClassificationResult is the provider-independent verdict for one piece of
// content
type ClassificationResult struct {
	Classification model.Classification
	Confidence     float64
	Reasoning      string
	RawResponse    string
}

// Gateway classifies submitted content. Implementations select the concrete
// model by content kind and are responsible for bounding the call with the
// configured timeout.
type Gateway interface {
	Classify(ctx context.Context, kind model.ContentKind, content string) (*ClassificationResult, error)
}
