package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/voxchat/backend/internal/models"
	"github.com/voxchat/backend/internal/stream"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidToken = errors.New("invalid token")
)

// tokenTTL is how long issued tokens stay valid
const tokenTTL = 24 * time.Hour

// Service issues and validates API tokens, and provisions the matching
// client-side Stream chat token.
type Service struct {
	jwtSecret []byte
	db        *gorm.DB
	chat      stream.ChatServiceInterface
}

// NewService creates a new authentication service
func NewService(jwtSecret []byte, db *gorm.DB, chat stream.ChatServiceInterface) *Service {
	return &Service{
		jwtSecret: jwtSecret,
		db:        db,
		chat:      chat,
	}
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Token       string      `json:"token"`
	StreamToken string      `json:"stream_token,omitempty"`
	User        models.User `json:"user"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// IssueToken creates an API token for the user plus a Stream token the client
// uses to connect to chat directly.
func (s *Service) IssueToken(user *models.User) (*AuthResponse, error) {
	expiresAt := time.Now().Add(tokenTTL)

	claims := jwt.MapClaims{
		"user_id":        user.ID,
		"email":          user.Email,
		"username":       user.Username,
		"stream_user_id": user.StreamUserID,
		"exp":            expiresAt.Unix(),
		"iat":            time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	resp := &AuthResponse{
		Token:     tokenString,
		User:      *user,
		ExpiresAt: expiresAt,
	}

	if s.chat != nil && user.StreamUserID != "" {
		streamToken, err := s.chat.CreateToken(user.StreamUserID, expiresAt)
		if err != nil {
			return nil, fmt.Errorf("failed to create stream token: %w", err)
		}
		resp.StreamToken = streamToken
	}

	return resp, nil
}

// ValidateToken validates a JWT token and returns user info
func (s *Service) ValidateToken(tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}

	// Fetch fresh user data
	var user models.User
	err = s.db.Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}

	return &user, nil
}
