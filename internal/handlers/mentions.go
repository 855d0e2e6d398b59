package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/telemetry"
	"github.com/voxchat/backend/internal/util"
)

// MentionAutocomplete resolves a partial @mention token to matching users.
// Matches are fed into the session's resolved-user set so the composer can
// bind them when the full name lands in the text.
func (h *Handlers) MentionAutocomplete(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	token := strings.TrimSpace(strings.TrimPrefix(c.Query("q"), "@"))
	if token == "" {
		util.RespondBadRequest(c, "q", "mention token is required")
		return
	}

	if h.directory == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "autocomplete_unavailable",
			"message": "mention autocomplete is not configured",
		})
		return
	}

	users, err := h.directory.Resolve(c.Request.Context(), token)
	if err != nil {
		logger.Log.Warn("Mention autocomplete failed", zap.String("token", token), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "autocomplete_failed",
			"message": "could not resolve mention candidates",
		})
		return
	}

	session.AddResolvedUsers(c.Request.Context(), users...)

	_, span := telemetry.GetBusinessEvents().TraceAutocomplete(c.Request.Context(), telemetry.AutocompleteEventAttrs{
		Token:       token,
		ResultCount: int64(len(users)),
	})
	span.End()

	c.JSON(http.StatusOK, gin.H{
		"users":   users,
		"session": session.Snapshot(),
	})
}
