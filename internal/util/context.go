package util

import (
	"github.com/gin-gonic/gin"
	"github.com/voxchat/backend/internal/models"
)

// GetUserFromContext pulls the authenticated user set by the auth
// middleware. Responds 401 and returns false when the request never passed
// authentication.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get("user")
	if !exists {
		RespondUnauthorized(c, "")
		return nil, false
	}
	user, ok := value.(*models.User)
	if !ok {
		RespondInternalError(c, "invalid user data in context")
		return nil, false
	}
	return user, true
}

// GetUserIDFromContext pulls just the authenticated user ID, for handlers
// that never need the full user row.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		RespondUnauthorized(c, "")
		return "", false
	}
	userID, ok := value.(string)
	if !ok {
		RespondInternalError(c, "invalid user ID in context")
		return "", false
	}
	return userID, true
}
