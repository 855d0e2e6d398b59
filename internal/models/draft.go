package models

import (
	"time"

	"github.com/voxchat/backend/internal/composer"
)

// MessageDraft is the durable copy of unsent composer content, one row per
// user and channel. Redis fronts these rows; this table is the fallback when
// the cache is cold.
type MessageDraft struct {
	ID        string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID    string `gorm:"not null;uniqueIndex:idx_drafts_user_channel" json:"user_id"`
	ChannelID string `gorm:"not null;uniqueIndex:idx_drafts_user_channel" json:"channel_id"`

	Text        string                       `gorm:"type:text" json:"text"`
	Attachments []composer.PendingAttachment `gorm:"type:jsonb;serializer:json" json:"attachments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
