package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"content-moderation-go/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "moderation.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.ModerationRequest{},
		&model.ModerationResult{},
		&model.NotificationLogEntry{},
	))
	return db
}

func makeRequest(submitter, content string) *model.ModerationRequest {
	return &model.ModerationRequest{
		Submitter:   submitter,
		ContentKind: model.ContentKindText,
		ContentHash: fingerprintOf(content),
		Content:     content,
		Status:      model.StatusPending,
	}
}

// fingerprintOf is a stand-in for the real fingerprint; uniqueness per
// content string is all these tests need.
func fingerprintOf(content string) string {
	padded := "hash-" + content
	for len(padded) < 64 {
		padded += "0"
	}
	return padded[:64]
}

func ageRequest(t *testing.T, db *gorm.DB, id uint, age time.Duration) {
	t.Helper()
	old := time.Now().Add(-age)
	require.NoError(t, db.Model(&model.ModerationRequest{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", old).Error)
}
