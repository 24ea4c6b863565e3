// Package taskqueue provides the in-process background task runner used for
// classification and notification work. Tasks execute at least once; failed
// runs are retried with exponential backoff up to a fixed attempt ceiling.
package taskqueue

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNilTask       = errors.New("cannot enqueue nil task")
	ErrRunnerStopped = errors.New("task runner has been stopped")
	ErrQueueFull     = errors.New("task queue is full")
)

// Task is a unit of background work. Run returns nil when the work is done;
// any error schedules a retry until the attempt ceiling is reached.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// ExhaustionHandler is implemented by tasks that need to react when the
// runner gives up on them. OnExhausted runs after the final failed attempt.
type ExhaustionHandler interface {
	OnExhausted(ctx context.Context, lastErr error)
}

// RetryPolicy bounds how often and how fast a failing task is re-executed.
// MaxAttempts counts every execution including the first one.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// JobStatus represents the current status of a job in the runner
type JobStatus int

const (
	JobStatusPending JobStatus = iota
	JobStatusRunning
	JobStatusRetrying
	JobStatusCompleted
	JobStatusFailed
)

// String returns a string representation of the job status
func (s JobStatus) String() string {
	switch s {
	case JobStatusPending:
		return "pending"
	case JobStatusRunning:
		return "running"
	case JobStatusRetrying:
		return "retrying"
	case JobStatusCompleted:
		return "completed"
	case JobStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of runner activity
type Stats struct {
	Enqueued  int `json:"enqueued"`
	Active    int `json:"active"`
	Running   int `json:"running"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Retries   int `json:"retries"`
}
