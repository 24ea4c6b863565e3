package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"content-moderation-go/internal/classifier"
	"content-moderation-go/internal/config"
	"content-moderation-go/internal/metrics"
	"content-moderation-go/internal/model"
	"content-moderation-go/internal/moderation"
	"content-moderation-go/internal/notifier"
	"content-moderation-go/internal/store"
	"content-moderation-go/internal/taskqueue"
)

type stubGateway struct{}

func (stubGateway) Classify(_ context.Context, _ model.ContentKind, _ string) (*classifier.ClassificationResult, error) {
	return &classifier.ClassificationResult{
		Classification: model.ClassificationSafe,
		Confidence:     1,
		Reasoning:      "stubbed",
	}, nil
}

type schedulerHarness struct {
	db        *gorm.DB
	content   *store.ContentStore
	scheduler *Scheduler
}

func newSchedulerHarness(t *testing.T, retention config.RetentionConfig, queue config.QueueConfig) *schedulerHarness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "moderation.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.ModerationRequest{}, &model.ModerationResult{}, &model.NotificationLogEntry{}))

	content := store.NewContentStore(db)
	results := store.NewResultStore(db)
	logs := store.NewNotificationStore(db)

	runner := taskqueue.NewRunner(1, taskqueue.RetryPolicy{
		MaxAttempts:    2,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
		Multiplier:     2,
	})
	runner.SetScanInterval(5 * time.Millisecond)
	runner.Start(context.Background())
	t.Cleanup(func() { _ = runner.StopWithTimeout(2 * time.Second) })

	m := metrics.NewMetricsWith(prometheus.NewRegistry())
	orchestrator := moderation.NewOrchestrator(content, results, notifier.NewDispatcher(logs), stubGateway{}, runner, m)

	return &schedulerHarness{
		db:        db,
		content:   content,
		scheduler: NewScheduler(&retention, &queue, orchestrator, content, m),
	}
}

func defaultRetention() config.RetentionConfig {
	return config.RetentionConfig{Enabled: true, IntervalHours: 24, MaxAge: time.Hour}
}

func defaultQueue() config.QueueConfig {
	return config.QueueConfig{Workers: 1, MaxAttempts: 2, RequeueStaleAfter: 10 * time.Minute}
}

func (h *schedulerHarness) seedRequest(t *testing.T, hashSeed string, status model.RequestStatus, age time.Duration) *model.ModerationRequest {
	t.Helper()

	req := &model.ModerationRequest{
		Submitter:   "seed@example.com",
		ContentKind: model.ContentKindText,
		ContentHash: moderation.Fingerprint(hashSeed),
		Content:     hashSeed,
		Status:      status,
	}
	require.NoError(t, h.db.Create(req).Error)

	if age > 0 {
		require.NoError(t, h.db.Model(&model.ModerationRequest{}).
			Where("id = ?", req.ID).
			UpdateColumn("updated_at", time.Now().Add(-age)).Error)
	}
	return req
}

func TestSchedulerStartStop(t *testing.T) {
	h := newSchedulerHarness(t, defaultRetention(), defaultQueue())

	assert.False(t, h.scheduler.IsRunning())

	require.NoError(t, h.scheduler.Start())
	assert.True(t, h.scheduler.IsRunning())

	err := h.scheduler.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	require.NoError(t, h.scheduler.Stop())
	assert.False(t, h.scheduler.IsRunning())

	// Stopping again is a no-op.
	require.NoError(t, h.scheduler.Stop())
}

func TestNextRunTimesFollowLifecycle(t *testing.T) {
	h := newSchedulerHarness(t, defaultRetention(), defaultQueue())

	assert.True(t, h.scheduler.NextRetentionRun().IsZero())
	assert.True(t, h.scheduler.NextSweepRun().IsZero())

	require.NoError(t, h.scheduler.Start())
	defer func() { _ = h.scheduler.Stop() }()

	next := h.scheduler.NextRetentionRun()
	assert.False(t, next.IsZero())
	assert.True(t, next.After(time.Now()))

	sweep := h.scheduler.NextSweepRun()
	assert.False(t, sweep.IsZero())
	assert.True(t, sweep.Sub(time.Now()) <= 5*time.Minute+time.Second)

	require.NoError(t, h.scheduler.Stop())
	assert.True(t, h.scheduler.NextRetentionRun().IsZero())
	assert.True(t, h.scheduler.NextSweepRun().IsZero())
}

func TestDisabledJobsAreNotScheduled(t *testing.T) {
	h := newSchedulerHarness(t,
		config.RetentionConfig{Enabled: false},
		config.QueueConfig{Workers: 1, MaxAttempts: 2, RequeueStaleAfter: 0},
	)

	require.NoError(t, h.scheduler.Start())
	defer func() { _ = h.scheduler.Stop() }()

	assert.True(t, h.scheduler.NextRetentionRun().IsZero())
	assert.True(t, h.scheduler.NextSweepRun().IsZero())
}

func TestRunOnceRetentionPurgesExpiredTerminalRequests(t *testing.T) {
	h := newSchedulerHarness(t, defaultRetention(), defaultQueue())

	expired := h.seedRequest(t, "expired completed", model.StatusCompleted, 2*time.Hour)
	freshDone := h.seedRequest(t, "fresh completed", model.StatusCompleted, 0)
	oldPending := h.seedRequest(t, "old pending", model.StatusPending, 2*time.Hour)

	require.NoError(t, h.scheduler.RunOnce())
	h.scheduler.Wait()

	gone, err := h.content.Get(expired.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := h.content.Get(freshDone.ID)
	require.NoError(t, err)
	require.NotNil(t, kept)

	// Non-terminal requests are never retention targets, however old. The
	// sweep re-queues this one instead.
	swept, err := h.content.Get(oldPending.ID)
	require.NoError(t, err)
	require.NotNil(t, swept)

	require.Eventually(t, func() bool {
		req, err := h.content.Get(oldPending.ID)
		return err == nil && req != nil && req.Status == model.StatusCompleted
	}, 3*time.Second, 10*time.Millisecond)
}

func TestRunOnceSkipsDisabledRetention(t *testing.T) {
	h := newSchedulerHarness(t,
		config.RetentionConfig{Enabled: false, MaxAge: time.Hour},
		config.QueueConfig{Workers: 1, MaxAttempts: 2, RequeueStaleAfter: 0},
	)

	expired := h.seedRequest(t, "expired but kept", model.StatusCompleted, 2*time.Hour)

	require.NoError(t, h.scheduler.RunOnce())
	h.scheduler.Wait()

	kept, err := h.content.Get(expired.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
