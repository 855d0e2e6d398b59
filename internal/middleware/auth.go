package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/voxchat/backend/internal/auth"
	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/util"
	"go.uber.org/zap"
)

// AuthMiddleware validates the Bearer token on the request and loads the
// authenticated user into the gin context under "user", "user_id" and
// "stream_user_id".
func AuthMiddleware(authService auth.AuthServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			util.RespondUnauthorized(c, "missing bearer token")
			c.Abort()
			return
		}

		user, err := authService.ValidateToken(token)
		if err != nil {
			logger.Log.Debug("token validation failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			util.RespondUnauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Set("stream_user_id", user.StreamUserID)

		c.Next()
	}
}

// extractBearerToken pulls the token out of the Authorization header.
// A bare token without the "Bearer " prefix is accepted for older clients.
func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(header)
}
