package models

import (
	"time"

	"gorm.io/gorm"
)

// VoiceNote records an uploaded voice recording: where the encoded audio
// landed on the CDN plus the display metadata clients render.
type VoiceNote struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	ChannelID string `gorm:"not null;index" json:"channel_id"`
	MessageID string `gorm:"index" json:"message_id"`

	// Audio file data
	URL        string       `gorm:"not null" json:"url"`
	S3Key      string       `json:"s3_key"`
	MIMEType   string       `gorm:"default:audio/wav" json:"mime_type"`
	SizeBytes  int64        `json:"size_bytes"`
	DurationMS int64        `json:"duration_ms"`
	Waveform   Float64Array `gorm:"type:jsonb;serializer:json" json:"waveform"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Float64Array is the waveform level list persisted as JSON
type Float64Array []float64
