package store

import "errors"

var (
	// ErrInvalidTransition is returned when a status change is not in the
	// transition table, or when the conditional update finds the row in a
	// different state than expected. It means a background task acted on
	// stale state and must never be silently swallowed.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateResult is returned when a second classification result is
	// written for a request. Results are never overwritten.
	ErrDuplicateResult = errors.New("result already exists for request")

	// ErrDuplicateSubmissionRace is returned when an insert loses the
	// fingerprint uniqueness race and the winning row cannot be read back.
	ErrDuplicateSubmissionRace = errors.New("lost submission race and winner not found")
)
