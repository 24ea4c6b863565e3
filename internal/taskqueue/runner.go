package taskqueue

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Hard upper bound on a single task execution. Individual collaborators
// carry their own tighter timeouts; this only stops a wedged task from
// pinning a worker forever.
const taskTimeout = 2 * time.Minute

// Job tracks one enqueued task through its attempts
type Job struct {
	ID        string
	Task      Task
	Policy    RetryPolicy
	Status    JobStatus
	Attempts  int
	NextRunAt time.Time
	LastError error
	CreatedAt time.Time
}

// Runner executes enqueued tasks on a bounded worker pool. A ticker scans
// for due jobs; each failed run is rescheduled with exponential backoff
// until the policy's attempt ceiling, after which the task's exhaustion
// handler (if any) is invoked exactly once.
type Runner struct {
	mu           sync.Mutex
	jobs         []*Job
	policy       RetryPolicy
	maxJobs      int
	workers      chan struct{}
	stats        Stats
	isRunning    bool
	stopCh       chan struct{}
	cancel       context.CancelFunc
	runningTasks sync.WaitGroup
	scanInterval time.Duration
}

// NewRunner creates a task runner with the given worker count and default
// retry policy. The policy applies to every task enqueued via Enqueue.
func NewRunner(workers int, policy RetryPolicy) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		policy:       policy,
		maxJobs:      1000,
		workers:      make(chan struct{}, workers),
		stopCh:       make(chan struct{}),
		scanInterval: 250 * time.Millisecond,
	}
}

// SetScanInterval adjusts how often the runner looks for due jobs
func (r *Runner) SetScanInterval(interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanInterval = interval
}

// Start begins processing enqueued jobs until Stop is called or the
// context is cancelled
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = true
	r.stopCh = make(chan struct{})

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	interval := r.scanInterval
	r.mu.Unlock()

	go r.loop(runCtx, interval)
}

// Stop halts job processing and waits for in-flight tasks to finish
func (r *Runner) Stop() error {
	return r.StopWithTimeout(30 * time.Second)
}

// StopWithTimeout halts job processing, waiting up to timeout for
// in-flight tasks
func (r *Runner) StopWithTimeout(timeout time.Duration) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	close(r.stopCh)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.runningTasks.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timed out waiting for tasks to finish after %v", timeout)
	}
}

// Enqueue schedules a task for immediate execution under the default policy
func (r *Runner) Enqueue(task Task) (*Job, error) {
	return r.EnqueueWithPolicy(task, r.policy)
}

// EnqueueWithPolicy schedules a task with a task-specific retry policy
func (r *Runner) EnqueueWithPolicy(task Task, policy RetryPolicy) (*Job, error) {
	if task == nil {
		return nil, ErrNilTask
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRunning {
		return nil, ErrRunnerStopped
	}
	if len(r.jobs) >= r.maxJobs {
		return nil, fmt.Errorf("%w: %d jobs queued", ErrQueueFull, len(r.jobs))
	}

	job := &Job{
		ID:        uuid.NewString(),
		Task:      task,
		Policy:    policy,
		Status:    JobStatusPending,
		NextRunAt: time.Now(),
		CreatedAt: time.Now(),
	}
	r.jobs = append(r.jobs, job)
	r.stats.Enqueued++
	return job, nil
}

// Stats returns a snapshot of runner activity
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.stats
	snapshot.Active = len(r.jobs)
	running := 0
	for _, job := range r.jobs {
		if job.Status == JobStatusRunning {
			running++
		}
	}
	snapshot.Running = running
	return snapshot
}

func (r *Runner) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			logrus.Debug("Task runner stopped")
			return
		case <-ctx.Done():
			logrus.Debugf("Task runner context cancelled: %v", ctx.Err())
			return
		case <-ticker.C:
			r.pruneFinishedJobs()
			r.dispatchDueJobs(ctx)
		}
	}
}

// pruneFinishedJobs drops completed and failed jobs from the active list
func (r *Runner) pruneFinishedJobs() {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := r.jobs[:0]
	for _, job := range r.jobs {
		if job.Status != JobStatusCompleted && job.Status != JobStatusFailed {
			active = append(active, job)
		}
	}
	r.jobs = active
}

// dispatchDueJobs hands due jobs to workers. When all workers are busy the
// remaining due jobs stay pending and are picked up on a later scan.
func (r *Runner) dispatchDueJobs(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	now := time.Now()
	r.mu.Lock()
	var due []*Job
	for _, job := range r.jobs {
		if (job.Status == JobStatusPending || job.Status == JobStatusRetrying) && !job.NextRunAt.After(now) {
			due = append(due, job)
		}
	}
	r.mu.Unlock()

	for _, job := range due {
		select {
		case r.workers <- struct{}{}:
		default:
			// All workers busy; leave the job for the next scan.
			return
		}

		r.mu.Lock()
		if job.Status != JobStatusPending && job.Status != JobStatusRetrying {
			r.mu.Unlock()
			<-r.workers
			continue
		}
		job.Status = JobStatusRunning
		job.Attempts++
		attempt := job.Attempts
		r.mu.Unlock()

		r.runningTasks.Add(1)
		go func(j *Job, attempt int) {
			defer r.runningTasks.Done()
			defer func() { <-r.workers }()
			r.executeJob(ctx, j, attempt)
		}(job, attempt)
	}
}

func (r *Runner) executeJob(ctx context.Context, job *Job, attempt int) {
	if attempt > 1 {
		logrus.Infof("Retrying task %s (%s), attempt %d/%d", job.Task.Name(), job.ID, attempt, job.Policy.MaxAttempts)
	}

	execCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				errCh <- fmt.Errorf("task panicked: %v", rec)
			}
		}()
		errCh <- job.Task.Run(execCtx)
	}()

	var err error
	select {
	case err = <-errCh:
	case <-execCtx.Done():
		err = fmt.Errorf("task execution aborted: %w", execCtx.Err())
	}

	if err == nil {
		r.mu.Lock()
		job.Status = JobStatusCompleted
		r.stats.Succeeded++
		r.mu.Unlock()
		if attempt > 1 {
			logrus.Infof("Task %s (%s) succeeded after %d attempts", job.Task.Name(), job.ID, attempt)
		}
		return
	}

	r.mu.Lock()
	job.LastError = err
	exhausted := attempt >= job.Policy.MaxAttempts
	if exhausted {
		job.Status = JobStatusFailed
		r.stats.Failed++
	} else {
		job.Status = JobStatusRetrying
		job.NextRunAt = time.Now().Add(backoffDelay(job.Policy, attempt))
		r.stats.Retries++
	}
	r.mu.Unlock()

	if exhausted {
		logrus.Errorf("Task %s (%s) permanently failed after %d attempts: %v", job.Task.Name(), job.ID, attempt, err)
		if handler, ok := job.Task.(ExhaustionHandler); ok {
			handler.OnExhausted(ctx, err)
		}
		return
	}
	logrus.Warnf("Task %s (%s) failed on attempt %d/%d, will retry: %v", job.Task.Name(), job.ID, attempt, job.Policy.MaxAttempts, err)
}

// backoffDelay computes the wait before the next attempt: exponential in the
// number of attempts so far, with ±10% jitter, capped at MaxBackoff.
func backoffDelay(policy RetryPolicy, attempts int) time.Duration {
	backoff := float64(policy.InitialBackoff) * math.Pow(policy.Multiplier, float64(attempts-1))

	jitter := 0.9 + 0.2*float64(time.Now().Nanosecond())/1e9
	backoff *= jitter

	if max := float64(policy.MaxBackoff); policy.MaxBackoff > 0 && backoff > max {
		backoff = max
	}
	return time.Duration(backoff)
}
