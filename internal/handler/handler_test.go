package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"content-moderation-go/internal/classifier"
	"content-moderation-go/internal/metrics"
	"content-moderation-go/internal/model"
	"content-moderation-go/internal/moderation"
	"content-moderation-go/internal/notifier"
	"content-moderation-go/internal/store"
	"content-moderation-go/internal/taskqueue"
)

// stubGateway returns a fixed verdict for every classification
type stubGateway struct {
	classification model.Classification
}

func (g *stubGateway) Classify(_ context.Context, _ model.ContentKind, _ string) (*classifier.ClassificationResult, error) {
	return &classifier.ClassificationResult{
		Classification: g.classification,
		Confidence:     0.95,
		Reasoning:      "stubbed verdict",
	}, nil
}

// apiHarness serves the full API over a throwaway database with background
// classification running against a stubbed classifier
type apiHarness struct {
	db      *gorm.DB
	engine  *gin.Engine
	content *store.ContentStore
	logs    *store.NotificationStore
	orch    *moderation.Orchestrator
	metrics *metrics.Metrics
}

func newAPIHarness(t *testing.T, gateway classifier.Gateway) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	runner := taskqueue.NewRunner(2, taskqueue.RetryPolicy{
		MaxAttempts:    2,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
		Multiplier:     2,
	})
	runner.SetScanInterval(5 * time.Millisecond)
	runner.Start(context.Background())
	t.Cleanup(func() { _ = runner.StopWithTimeout(2 * time.Second) })

	m := metrics.NewMetricsWith(prometheus.NewRegistry())
	orch := moderation.NewOrchestrator(content, results, notifier.NewDispatcher(logs), gateway, runner, m)

	engine := gin.New()
	NewHandlers(db, orch, content, logs, nil).SetupRoutes(engine)

	return &apiHarness{
		db:      db,
		engine:  engine,
		content: content,
		logs:    logs,
		orch:    orch,
		metrics: m,
	}
}

func (h *apiHarness) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func (h *apiHarness) waitForStatus(t *testing.T, id uint, want model.RequestStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		req, err := h.content.Get(id)
		return err == nil && req != nil && req.Status == want
	}, 3*time.Second, 10*time.Millisecond, "request %d never reached status %s", id, want)
}

func textBody(email, content string) map[string]string {
	return map[string]string{"email_id": email, "text_content": content}
}

func TestHealthCheck(t *testing.T) {
	h := newAPIHarness(t, &stubGateway{classification: model.ClassificationSafe})

	w := h.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var health HealthResponse
	decodeJSON(t, w, &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "ok", health.Database)
	assert.Equal(t, "stopped", health.Metrics["scheduler"])
	assert.Contains(t, health.Metrics, "queue_active")
	assert.Contains(t, health.Metrics, "queue_running")
}

func TestMetricsEndpointServes(t *testing.T) {
	h := newAPIHarness(t, &stubGateway{classification: model.ClassificationSafe})

	w := h.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# HELP")
}
