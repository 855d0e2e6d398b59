package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/voxchat/backend/internal/auth"
	"github.com/voxchat/backend/internal/dto"
	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/models"
	"github.com/voxchat/backend/internal/stream"
	"github.com/voxchat/backend/internal/util"
)

// AuthHandlers carries the identity surface: account registration plus token
// issuing. Password and OAuth flows live in the chat product's auth service;
// this backend only binds accounts to Stream and validates JWTs.
type AuthHandlers struct {
	authService auth.AuthServiceInterface
	chat        stream.ChatServiceInterface
	db          *gorm.DB
}

// NewAuthHandlers creates the auth handler set
func NewAuthHandlers(authService auth.AuthServiceInterface, chat stream.ChatServiceInterface, db *gorm.DB) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		chat:        chat,
		db:          db,
	}
}

// Register creates an account, binds it to a Stream chat user and returns an
// API token plus the Stream token the client connects to chat with.
func (ah *AuthHandlers) Register(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required,email"`
		Username    string `json:"username" binding:"required,min=3,max=30"`
		DisplayName string `json:"display_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "registration", err.Error())
		return
	}

	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	var existing models.User
	err := ah.db.Where("email = ? OR username = ?", req.Email, req.Username).First(&existing).Error
	if err == nil {
		util.RespondConflict(c, "account")
		return
	}
	if err != gorm.ErrRecordNotFound {
		util.RespondInternalError(c, "failed to check existing accounts")
		return
	}

	user := models.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		StreamUserID: "voxchat_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
	}

	if err := ah.db.Create(&user).Error; err != nil {
		logger.Log.Error("User creation failed", zap.String("username", req.Username), zap.Error(err))
		util.RespondInternalError(c, "failed to create account")
		return
	}

	if err := ah.chat.UpsertUser(c.Request.Context(), user.StreamUserID, user.Username); err != nil {
		// The account exists; the Stream binding can be retried on next login.
		logger.Log.Warn("Stream user upsert failed",
			zap.String("user_id", user.ID),
			zap.String("stream_user_id", user.StreamUserID),
			zap.Error(err),
		)
	}

	resp, err := ah.authService.IssueToken(&user)
	if err != nil {
		util.RespondInternalError(c, "failed to issue token")
		return
	}

	logger.Log.Info("👤 Account registered",
		zap.String("user_id", user.ID),
		zap.String("username", user.Username),
	)

	c.JSON(http.StatusCreated, resp)
}

// Me returns the authenticated user's profile
func (ah *AuthHandlers) Me(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": dto.ToUserDetailResponse(user)})
}

// RefreshToken issues a fresh API token and Stream token for the
// authenticated user.
func (ah *AuthHandlers) RefreshToken(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	resp, err := ah.authService.IssueToken(user)
	if err != nil {
		util.RespondInternalError(c, "failed to issue token")
		return
	}
	c.JSON(http.StatusOK, resp)
}
