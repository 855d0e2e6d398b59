// Package dto holds API response shapes that differ from the storage models.
package dto

import (
	"time"

	"github.com/voxchat/backend/internal/models"
)

// UserResponse is the public user representation (safe for API responses)
type UserResponse struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	DisplayName  string     `json:"display_name"`
	AvatarURL    string     `json:"avatar_url"`
	IsOnline     bool       `json:"is_online"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// UserDetailResponse includes private info, only for the account owner
type UserDetailResponse struct {
	UserResponse
	Email        string `json:"email"`
	StreamUserID string `json:"stream_user_id"`
}

// ToUserResponse converts models.User to UserResponse (excludes sensitive fields)
func ToUserResponse(user *models.User) *UserResponse {
	if user == nil {
		return nil
	}

	return &UserResponse{
		ID:           user.ID,
		Username:     user.Username,
		DisplayName:  user.DisplayName,
		AvatarURL:    user.AvatarURL,
		IsOnline:     user.IsOnline,
		LastActiveAt: user.LastActiveAt,
		CreatedAt:    user.CreatedAt,
	}
}

// ToUserDetailResponse converts models.User to UserDetailResponse
func ToUserDetailResponse(user *models.User) *UserDetailResponse {
	if user == nil {
		return nil
	}

	return &UserDetailResponse{
		UserResponse: *ToUserResponse(user),
		Email:        user.Email,
		StreamUserID: user.StreamUserID,
	}
}
