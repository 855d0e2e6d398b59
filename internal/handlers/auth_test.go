package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/voxchat/backend/internal/auth"
	"github.com/voxchat/backend/internal/middleware"
	"github.com/voxchat/backend/internal/models"
	"github.com/voxchat/backend/internal/stream"
)

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			username TEXT NOT NULL,
			display_name TEXT NOT NULL,
			avatar_url TEXT,
			last_active_at DATETIME,
			is_online INTEGER DEFAULT 0,
			stream_user_id TEXT,
			stream_token TEXT,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME
		)
	`).Error
	require.NoError(t, err)

	return db
}

func setupAuthRouter(t *testing.T) (*gin.Engine, *stream.MockChatService, *gorm.DB) {
	t.Helper()

	db := setupAuthTestDB(t)
	chat := stream.NewMockChatService()
	authService := auth.NewService([]byte("test-secret"), db, chat)
	ah := NewAuthHandlers(authService, chat, db)

	router := gin.New()
	authGroup := router.Group("/api/v1/auth")
	{
		authGroup.POST("/register", ah.Register)
		authGroup.GET("/me", middleware.AuthMiddleware(authService), ah.Me)
		authGroup.POST("/refresh", middleware.AuthMiddleware(authService), ah.RefreshToken)
	}

	return router, chat, db
}

func register(t *testing.T, router *gin.Engine, body gin.H) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegisterCreatesUserAndIssuesTokens(t *testing.T) {
	router, chat, db := setupAuthRouter(t)

	w := register(t, router, gin.H{
		"email":        "new@voxchat.io",
		"username":     "NewUser",
		"display_name": "New User",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp auth.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.StreamToken)
	assert.Equal(t, "newuser", resp.User.Username) // usernames are lowercased

	// User row exists and is bound to a Stream identity
	var user models.User
	require.NoError(t, db.Where("username = ?", "newuser").First(&user).Error)
	assert.NotEmpty(t, user.StreamUserID)
	assert.True(t, chat.AssertCalled("UpsertUser"))
}

func TestRegisterDuplicateReturnsConflict(t *testing.T) {
	router, _, _ := setupAuthRouter(t)

	w := register(t, router, gin.H{"email": "dup@voxchat.io", "username": "dupuser"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = register(t, router, gin.H{"email": "dup@voxchat.io", "username": "otheruser"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = register(t, router, gin.H{"email": "other@voxchat.io", "username": "dupuser"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	router, _, _ := setupAuthRouter(t)

	// Missing email
	w := register(t, router, gin.H{"username": "nouser"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Username too short
	w = register(t, router, gin.H{"email": "a@b.io", "username": "ab"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMeAndRefreshWithIssuedToken(t *testing.T) {
	router, _, _ := setupAuthRouter(t)

	w := register(t, router, gin.H{"email": "me@voxchat.io", "username": "meuser"})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp auth.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "meuser")

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var refreshed auth.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refreshed))
	assert.NotEmpty(t, refreshed.Token)
}
