// Package drafts persists unsent composer content so sessions survive client
// reconnects. Redis serves the hot path; PostgreSQL keeps the durable copy.
package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voxchat/backend/internal/cache"
	"github.com/voxchat/backend/internal/composer"
	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/models"
)

// cacheTTL bounds how long a draft stays in Redis without being touched. The
// database row has no expiry.
const cacheTTL = 7 * 24 * time.Hour

// Store implements composer.DraftStore over GORM with a Redis write-through
// cache. redis may be nil; the store then reads and writes the database only.
type Store struct {
	db    *gorm.DB
	redis *cache.RedisClient
}

var _ composer.DraftStore = (*Store)(nil)

// NewStore creates a draft store
func NewStore(db *gorm.DB, redis *cache.RedisClient) *Store {
	return &Store{db: db, redis: redis}
}

func draftKey(userID, channelID string) string {
	return fmt.Sprintf("draft:%s:%s", userID, channelID)
}

// Save implements composer.DraftStore.
func (s *Store) Save(ctx context.Context, d composer.Draft) error {
	record := models.MessageDraft{
		UserID:      d.UserID,
		ChannelID:   d.ChannelID,
		Text:        d.Text,
		Attachments: d.Attachments,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "channel_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "attachments", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}

	s.cacheWrite(ctx, d)
	return nil
}

// Load implements composer.DraftStore. A missing draft is (nil, nil).
func (s *Store) Load(ctx context.Context, userID, channelID string) (*composer.Draft, error) {
	if d, ok := s.cacheRead(ctx, userID, channelID); ok {
		return d, nil
	}

	var record models.MessageDraft
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND channel_id = ?", userID, channelID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	d := &composer.Draft{
		UserID:      record.UserID,
		ChannelID:   record.ChannelID,
		Text:        record.Text,
		Attachments: record.Attachments,
		UpdatedAt:   record.UpdatedAt,
	}
	s.cacheWrite(ctx, *d)
	return d, nil
}

// Delete implements composer.DraftStore.
func (s *Store) Delete(ctx context.Context, userID, channelID string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND channel_id = ?", userID, channelID).
		Delete(&models.MessageDraft{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	if s.redis != nil {
		if err := s.redis.Del(ctx, draftKey(userID, channelID)); err != nil {
			logger.Log.Debug("draft cache delete failed",
				zap.String("user_id", userID),
				zap.String("channel_id", channelID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *Store) cacheRead(ctx context.Context, userID, channelID string) (*composer.Draft, bool) {
	if s.redis == nil {
		return nil, false
	}
	raw, err := s.redis.Get(ctx, draftKey(userID, channelID))
	if err != nil {
		if !cache.IsMiss(err) {
			logger.Log.Debug("draft cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var d composer.Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, false
	}
	return &d, true
}

func (s *Store) cacheWrite(ctx context.Context, d composer.Draft) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return
	}
	if err := s.redis.SetEx(ctx, draftKey(d.UserID, d.ChannelID), raw, cacheTTL); err != nil {
		logger.Log.Debug("draft cache write failed",
			zap.String("user_id", d.UserID),
			zap.String("channel_id", d.ChannelID),
			zap.Error(err),
		)
	}
}
