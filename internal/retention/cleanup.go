// Package retention prunes composer data that has outlived its usefulness:
// voice notes soft-deleted past their grace period and drafts nobody has
// touched in weeks.
package retention

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/models"
)

const (
	// How long a soft-deleted voice note keeps its CDN object before the
	// row and the object are purged for good.
	voiceNoteGracePeriod = 7 * 24 * time.Hour

	// Drafts untouched this long are assumed abandoned.
	draftMaxAge = 30 * 24 * time.Hour
)

// FileDeleter removes uploaded objects from storage. Implemented by
// storage.S3Uploader.
type FileDeleter interface {
	DeleteFile(ctx context.Context, key string) error
}

// CacheInvalidator drops cached entries under a key prefix. Implemented by
// middleware.CacheManager.
type CacheInvalidator interface {
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// CleanupService handles periodic cleanup of expired composer data
type CleanupService struct {
	db          *gorm.DB
	fileDeleter FileDeleter // For deleting voice note audio from S3
	cache       CacheInvalidator
	ctx         context.Context
	cancel      context.CancelFunc
	interval    time.Duration
}

// NewCleanupService creates a new retention cleanup service
func NewCleanupService(db *gorm.DB, fileDeleter FileDeleter, interval time.Duration) *CleanupService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CleanupService{
		db:          db,
		fileDeleter: fileDeleter,
		ctx:         ctx,
		cancel:      cancel,
		interval:    interval,
	}
}

// SetCache wires draft cache invalidation into the prune pass
func (s *CleanupService) SetCache(cache CacheInvalidator) {
	s.cache = cache
}

// Start begins the periodic cleanup process
func (s *CleanupService) Start() {
	logger.Log.Info("🧹 Starting retention cleanup service",
		zap.Duration("interval", s.interval),
	)
	go s.run()
}

// Stop stops the cleanup service
func (s *CleanupService) Stop() {
	logger.Log.Info("🧹 Stopping retention cleanup service")
	s.cancel()
}

// run executes cleanup on the configured interval
func (s *CleanupService) run() {
	// Run immediately on startup
	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *CleanupService) sweep() {
	start := time.Now()

	notes, audioFiles, noteErrors := s.purgeVoiceNotes(s.ctx)
	drafts := s.pruneStaleDrafts(s.ctx)

	logger.Log.Info("✅ Retention sweep completed",
		zap.Int("voice_notes_purged", notes),
		zap.Int("audio_files_deleted", audioFiles),
		zap.Int("errors", noteErrors),
		zap.Int64("stale_drafts_removed", drafts),
		zap.Duration("took", time.Since(start)),
	)
}

// purgeVoiceNotes hard-deletes voice notes that were soft-deleted longer than
// the grace period ago, removing their CDN objects first.
func (s *CleanupService) purgeVoiceNotes(ctx context.Context) (purged, audioDeleted, errored int) {
	cutoff := time.Now().UTC().Add(-voiceNoteGracePeriod)

	var expired []models.VoiceNote
	err := s.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Find(&expired).Error
	if err != nil {
		logger.Log.Error("❌ Failed to query expired voice notes", zap.Error(err))
		return 0, 0, 1
	}

	if len(expired) == 0 {
		return 0, 0, 0
	}

	logger.Log.Info(fmt.Sprintf("🗑️ Found %d expired voice notes to purge", len(expired)))

	for _, note := range expired {
		if err := s.deleteAudio(note); err != nil {
			logger.Log.Warn("Failed to delete voice note audio from S3",
				zap.String("voice_note_id", note.ID),
				zap.Error(err),
			)
			// Continue anyway, the row purge matters more
		} else {
			audioDeleted++
		}

		if err := s.db.WithContext(ctx).Unscoped().Delete(&note).Error; err != nil {
			logger.Log.Error("❌ Failed to purge voice note",
				zap.String("voice_note_id", note.ID),
				zap.Error(err),
			)
			errored++
			continue
		}
		purged++
	}

	return purged, audioDeleted, errored
}

// pruneStaleDrafts drops drafts whose last edit is older than draftMaxAge.
func (s *CleanupService) pruneStaleDrafts(ctx context.Context) int64 {
	cutoff := time.Now().UTC().Add(-draftMaxAge)

	res := s.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&models.MessageDraft{})
	if res.Error != nil {
		logger.Log.Error("❌ Failed to prune stale drafts", zap.Error(res.Error))
		return 0
	}

	// Cached drafts outlive their rows by up to a week; drop them with the rows
	if res.RowsAffected > 0 && s.cache != nil {
		if err := s.cache.InvalidatePrefix(ctx, "draft"); err != nil {
			logger.Log.Warn("Failed to invalidate draft cache after prune", zap.Error(err))
		}
	}
	return res.RowsAffected
}

// deleteAudio removes a voice note's encoded audio from S3.
func (s *CleanupService) deleteAudio(note models.VoiceNote) error {
	if s.fileDeleter == nil {
		return nil
	}

	key := note.S3Key
	if key == "" {
		key = extractObjectKey(note.URL)
	}
	if key == "" {
		return fmt.Errorf("could not determine S3 key for voice note %s", note.ID)
	}

	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	return s.fileDeleter.DeleteFile(ctx, key)
}

// extractObjectKey extracts the S3 key from a CDN URL.
// Example: https://cdn.voxchat.io/voice-notes/2026/08/u1/f.m4a -> voice-notes/2026/08/u1/f.m4a
func extractObjectKey(url string) string {
	parts := strings.Split(url, "/")
	if len(parts) < 4 {
		return ""
	}

	// Keys are organized by file type, so find where the path starts
	for i, part := range parts {
		if part == "voice-notes" || part == "attachments" {
			return strings.Join(parts[i:], "/")
		}
	}

	return ""
}
