package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/voxchat/backend/internal/auth"
	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/models"
	"go.uber.org/zap"
)

func setupAuthRouter(t *testing.T, authService auth.AuthServiceInterface) *gin.Engine {
	t.Helper()

	var err error
	logger.Log, err = zap.NewDevelopment()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware(authService))
	router.GET("/me", func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	return router
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	mock := auth.NewMockAuthService()
	mock.Users["valid-token"] = &models.User{ID: "u-1", Username: "amy", StreamUserID: "vox_amy"}

	router := setupAuthRouter(t, mock)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u-1")
	assert.True(t, mock.AssertCalled("ValidateToken"))
}

func TestAuthMiddlewareAcceptsBareToken(t *testing.T) {
	mock := auth.NewMockAuthService()
	mock.Users["bare-token"] = &models.User{ID: "u-2", Username: "ben"}

	router := setupAuthRouter(t, mock)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "bare-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	router := setupAuthRouter(t, auth.NewMockAuthService())

	req := httptest.NewRequest("GET", "/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsInvalidToken(t *testing.T) {
	router := setupAuthRouter(t, auth.NewMockAuthService())

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
