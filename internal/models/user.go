package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a voxchat account. Chat data lives in Stream; this row
// carries the identity and the Stream binding.
type User struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `gorm:"not null" json:"display_name"`

	// Profile data
	AvatarURL string `json:"avatar_url"`

	// Activity tracking
	LastActiveAt *time.Time `json:"last_active_at"`
	IsOnline     bool       `gorm:"default:false" json:"is_online"`

	// getstream.io integration
	StreamUserID string  `gorm:"uniqueIndex" json:"stream_user_id"`
	StreamToken  *string `gorm:"type:text" json:"-"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate fills the ID and Stream binding when the caller left them
// empty. SQLite has no gen_random_uuid(), so tests rely on this hook.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.StreamUserID == "" {
		u.StreamUserID = u.ID
	}
	return nil
}
