// Package scheduler runs the periodic maintenance jobs: retention cleanup
// of old terminal requests, re-queueing of stalled requests, and the queue
// depth gauge refresh.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"content-moderation-go/internal/config"
	"content-moderation-go/internal/metrics"
	"content-moderation-go/internal/moderation"
	"content-moderation-go/internal/store"
)

// Scheduler manages the periodic maintenance jobs
type Scheduler struct {
	cron         *cron.Cron
	retentionID  cron.EntryID
	sweepID      cron.EntryID
	retention    *config.RetentionConfig
	queue        *config.QueueConfig
	orchestrator *moderation.Orchestrator
	content      *store.ContentStore
	metrics      *metrics.Metrics
	wg           sync.WaitGroup
	isRunning    bool
	mu           sync.RWMutex
}

// NewScheduler creates a new scheduler
func NewScheduler(retention *config.RetentionConfig, queue *config.QueueConfig, orchestrator *moderation.Orchestrator, content *store.ContentStore, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		cron:         cron.New(cron.WithSeconds()),
		retention:    retention,
		queue:        queue,
		orchestrator: orchestrator,
		content:      content,
		metrics:      m,
	}
}

// Start registers and starts the maintenance jobs
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if s.retention.Enabled {
		schedule := fmt.Sprintf("0 0 */%d * * *", s.retention.IntervalHours)
		entryID, err := s.cron.AddFunc(schedule, s.runRetention)
		if err != nil {
			return fmt.Errorf("failed to add retention job: %w", err)
		}
		s.retentionID = entryID
		logrus.Infof("Retention cleanup scheduled every %d hours (max age %v)", s.retention.IntervalHours, s.retention.MaxAge)
	}

	if s.queue.RequeueStaleAfter > 0 {
		entryID, err := s.cron.AddFunc("0 */5 * * * *", s.runStaleSweep)
		if err != nil {
			return fmt.Errorf("failed to add stale sweep job: %w", err)
		}
		s.sweepID = entryID
		logrus.Infof("Stale request sweep scheduled every 5 minutes (threshold %v)", s.queue.RequeueStaleAfter)
	}

	if _, err := s.cron.AddFunc("*/15 * * * * *", s.updateQueueDepth); err != nil {
		return fmt.Errorf("failed to add queue depth job: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	logrus.Info("Maintenance scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	ctx := s.cron.Stop()

	select {
	case <-ctx.Done():
		logrus.Info("Maintenance scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Maintenance scheduler stop timeout, forcing shutdown")
	}

	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// runRetention removes terminal requests older than the configured age
func (s *Scheduler) runRetention() {
	s.wg.Add(1)
	defer s.wg.Done()

	removed, err := s.content.DeleteTerminalOlderThan(s.retention.MaxAge)
	if err != nil {
		logrus.Errorf("Retention cleanup failed: %v", err)
		return
	}
	if removed > 0 {
		logrus.Infof("Retention cleanup removed %d expired requests", removed)
	}
}

// runStaleSweep re-queues classification for requests that stopped moving
func (s *Scheduler) runStaleSweep() {
	s.wg.Add(1)
	defer s.wg.Done()

	if _, err := s.orchestrator.RequeueStale(s.queue.RequeueStaleAfter); err != nil {
		logrus.Errorf("Stale request sweep failed: %v", err)
	}
}

// updateQueueDepth refreshes the queue depth gauge from the runner stats
func (s *Scheduler) updateQueueDepth() {
	stats := s.orchestrator.QueueStats()
	s.metrics.QueueDepth.Set(float64(stats.Active))
}

// RunOnce triggers the maintenance jobs immediately (for manual runs)
func (s *Scheduler) RunOnce() error {
	logrus.Info("Running maintenance jobs once")
	if s.retention.Enabled {
		s.runRetention()
	}
	if s.queue.RequeueStaleAfter > 0 {
		s.runStaleSweep()
	}
	s.updateQueueDepth()
	return nil
}

// NextRetentionRun returns the time of the next scheduled retention cleanup
func (s *Scheduler) NextRetentionRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || s.retentionID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.retentionID).Next
}

// NextSweepRun returns the time of the next scheduled stale sweep
func (s *Scheduler) NextSweepRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || s.sweepID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.sweepID).Next
}

// Wait waits for in-flight maintenance jobs to finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
