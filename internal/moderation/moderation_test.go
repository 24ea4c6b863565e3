package moderation

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"content-moderation-go/internal/classifier"
	"content-moderation-go/internal/metrics"
	"content-moderation-go/internal/model"
	"content-moderation-go/internal/notifier"
	"content-moderation-go/internal/store"
	"content-moderation-go/internal/taskqueue"
)

// fakeGateway scripts classifier behavior per call. The classify function
// receives the 1-based call number so tests can fail N times then succeed.
type fakeGateway struct {
	mu       sync.Mutex
	calls    int
	classify func(call int, kind model.ContentKind, content string) (*classifier.ClassificationResult, error)
}

func (g *fakeGateway) Classify(_ context.Context, kind model.ContentKind, content string) (*classifier.ClassificationResult, error) {
	g.mu.Lock()
	g.calls++
	call := g.calls
	fn := g.classify
	g.mu.Unlock()
	return fn(call, kind, content)
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func verdict(c model.Classification, confidence float64) *classifier.ClassificationResult {
	return &classifier.ClassificationResult{
		Classification: c,
		Confidence:     confidence,
		Reasoning:      "scripted verdict",
		RawResponse:    `{"scripted": true}`,
	}
}

func alwaysGateway(c model.Classification) *fakeGateway {
	return &fakeGateway{classify: func(int, model.ContentKind, string) (*classifier.ClassificationResult, error) {
		return verdict(c, 0.9), nil
	}}
}

func alwaysFailingGateway(err error) *fakeGateway {
	return &fakeGateway{classify: func(int, model.ContentKind, string) (*classifier.ClassificationResult, error) {
		return nil, err
	}}
}

// recordingNotifier counts deliveries and can be scripted to fail
type recordingNotifier struct {
	channel model.NotificationChannel

	mu    sync.Mutex
	sends int
	err   error
}

func (n *recordingNotifier) Channel() model.NotificationChannel { return n.channel }

func (n *recordingNotifier) Send(_ context.Context, _ *model.ModerationRequest, _ *model.ModerationResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends++
	return n.err
}

func (n *recordingNotifier) sendCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sends
}

// harness wires a full lifecycle engine over a throwaway database with a
// fast-scanning runner
type harness struct {
	db      *gorm.DB
	content *store.ContentStore
	results *store.ResultStore
	logs    *store.NotificationStore
	gateway *fakeGateway
	email   *recordingNotifier
	chat    *recordingNotifier
	runner  *taskqueue.Runner
	orch    *Orchestrator
}

func newHarness(t *testing.T, gateway *fakeGateway) *harness {
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

	h := &harness{
		db:      db,
		content: store.NewContentStore(db),
		results: store.NewResultStore(db),
		logs:    store.NewNotificationStore(db),
		gateway: gateway,
		email:   &recordingNotifier{channel: model.ChannelEmail},
		chat:    &recordingNotifier{channel: model.ChannelChat},
	}

	dispatcher := notifier.NewDispatcher(h.logs, h.email, h.chat)

	h.runner = taskqueue.NewRunner(2, taskqueue.RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
		Multiplier:     2,
	})
	h.runner.SetScanInterval(5 * time.Millisecond)
	h.runner.Start(context.Background())
	t.Cleanup(func() { _ = h.runner.StopWithTimeout(2 * time.Second) })

	m := metrics.NewMetricsWith(prometheus.NewRegistry())
	h.orch = NewOrchestrator(h.content, h.results, dispatcher, gateway, h.runner, m)
	return h
}

func (h *harness) waitForStatus(t *testing.T, id uint, want model.RequestStatus) *model.ModerationRequest {
	t.Helper()

	var req *model.ModerationRequest
	require.Eventually(t, func() bool {
		var err error
		req, err = h.content.Get(id)
		return err == nil && req != nil && req.Status == want
	}, 3*time.Second, 10*time.Millisecond, "request %d never reached status %s", id, want)
	return req
}

func (h *harness) waitForLogEntries(t *testing.T, id uint, count int) []model.NotificationLogEntry {
	t.Helper()

	var entries []model.NotificationLogEntry
	require.Eventually(t, func() bool {
		var err error
		entries, err = h.logs.ListByRequest(id)
		return err == nil && len(entries) == count
	}, 3*time.Second, 10*time.Millisecond, "request %d never accumulated %d log entries", id, count)
	return entries
}

// seedRequest inserts a request directly, bypassing Submit, for tests that
// need a specific starting state
func (h *harness) seedRequest(t *testing.T, content string, status model.RequestStatus) *model.ModerationRequest {
	t.Helper()

	req := &model.ModerationRequest{
		Submitter:   "seed@example.com",
		ContentKind: model.ContentKindText,
		ContentHash: Fingerprint(content),
		Content:     content,
		Status:      status,
	}
	require.NoError(t, h.db.Create(req).Error)
	return req
}
