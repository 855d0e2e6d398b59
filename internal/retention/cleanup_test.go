package retention

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/voxchat/backend/internal/models"
)

// MockFileDeleter implements FileDeleter for testing
type MockFileDeleter struct {
	DeletedKeys []string
	ShouldFail  bool
}

func (m *MockFileDeleter) DeleteFile(ctx context.Context, key string) error {
	if m.ShouldFail {
		return fmt.Errorf("mock delete failure")
	}
	m.DeletedKeys = append(m.DeletedKeys, key)
	return nil
}

func setupRetentionDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE voice_notes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		message_id TEXT,
		url TEXT NOT NULL,
		s3_key TEXT,
		mime_type TEXT DEFAULT 'audio/wav',
		size_bytes INTEGER,
		duration_ms INTEGER,
		waveform TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`).Error)

	require.NoError(t, db.Exec(`CREATE TABLE message_drafts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		text TEXT,
		attachments TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)

	return db
}

func createVoiceNote(t *testing.T, db *gorm.DB, id, s3Key string, deletedAt *time.Time) {
	t.Helper()

	note := models.VoiceNote{
		ID:         id,
		UserID:     "u-1",
		ChannelID:  "messaging:general",
		URL:        "https://cdn.voxchat.io/" + s3Key,
		S3Key:      s3Key,
		MIMEType:   "audio/mp4",
		DurationMS: 2000,
	}
	require.NoError(t, db.Create(&note).Error)

	if deletedAt != nil {
		require.NoError(t, db.Model(&models.VoiceNote{}).Unscoped().
			Where("id = ?", id).
			Update("deleted_at", *deletedAt).Error)
	}
}

func TestPurgeVoiceNotesRemovesExpiredAndAudio(t *testing.T) {
	db := setupRetentionDB(t)
	deleter := &MockFileDeleter{}
	svc := NewCleanupService(db, deleter, time.Hour)

	longGone := time.Now().UTC().Add(-voiceNoteGracePeriod - time.Hour)
	justDeleted := time.Now().UTC().Add(-time.Hour)

	createVoiceNote(t, db, "vn-expired", "voice-notes/2026/08/u-1/a.m4a", &longGone)
	createVoiceNote(t, db, "vn-recent", "voice-notes/2026/08/u-1/b.m4a", &justDeleted)
	createVoiceNote(t, db, "vn-live", "voice-notes/2026/08/u-1/c.m4a", nil)

	purged, audioDeleted, errored := svc.purgeVoiceNotes(context.Background())
	assert.Equal(t, 1, purged)
	assert.Equal(t, 1, audioDeleted)
	assert.Equal(t, 0, errored)
	assert.Equal(t, []string{"voice-notes/2026/08/u-1/a.m4a"}, deleter.DeletedKeys)

	var remaining int64
	require.NoError(t, db.Model(&models.VoiceNote{}).Unscoped().Count(&remaining).Error)
	assert.Equal(t, int64(2), remaining)
}

func TestPurgeVoiceNotesSurvivesDeleteFailure(t *testing.T) {
	db := setupRetentionDB(t)
	deleter := &MockFileDeleter{ShouldFail: true}
	svc := NewCleanupService(db, deleter, time.Hour)

	longGone := time.Now().UTC().Add(-voiceNoteGracePeriod - time.Hour)
	createVoiceNote(t, db, "vn-expired", "voice-notes/2026/08/u-1/a.m4a", &longGone)

	// S3 failure should not block the row purge
	purged, audioDeleted, _ := svc.purgeVoiceNotes(context.Background())
	assert.Equal(t, 1, purged)
	assert.Equal(t, 0, audioDeleted)

	var remaining int64
	require.NoError(t, db.Model(&models.VoiceNote{}).Unscoped().Count(&remaining).Error)
	assert.Equal(t, int64(0), remaining)
}

func TestPruneStaleDrafts(t *testing.T) {
	db := setupRetentionDB(t)
	svc := NewCleanupService(db, nil, time.Hour)

	stale := models.MessageDraft{ID: "d-stale", UserID: "u-1", ChannelID: "messaging:a", Text: "old"}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Model(&models.MessageDraft{}).
		Where("id = ?", "d-stale").
		Update("updated_at", time.Now().UTC().Add(-draftMaxAge-time.Hour)).Error)

	fresh := models.MessageDraft{ID: "d-fresh", UserID: "u-1", ChannelID: "messaging:b", Text: "new"}
	require.NoError(t, db.Create(&fresh).Error)

	removed := svc.pruneStaleDrafts(context.Background())
	assert.Equal(t, int64(1), removed)

	var drafts []models.MessageDraft
	require.NoError(t, db.Find(&drafts).Error)
	require.Len(t, drafts, 1)
	assert.Equal(t, "d-fresh", drafts[0].ID)
}

func TestExtractObjectKey(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://cdn.voxchat.io/voice-notes/2026/08/u1/f.m4a", "voice-notes/2026/08/u1/f.m4a"},
		{"https://cdn.voxchat.io/attachments/2026/08/u1/pic.jpg", "attachments/2026/08/u1/pic.jpg"},
		{"https://cdn.voxchat.io/other/thing.bin", ""},
		{"not-a-url", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, extractObjectKey(tt.url), tt.url)
	}
}
