package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/middleware"
	"github.com/voxchat/backend/internal/telemetry"
	"github.com/voxchat/backend/internal/util"
)

// GetDraft returns the saved draft for a channel without opening a session.
// Clients use it to render the "draft" badge in the channel list.
func (h *Handlers) GetDraft(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	channelID := c.Param("channelId")

	if h.drafts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "drafts_unavailable",
			"message": "draft persistence is not configured",
		})
		return
	}

	ctx, span := telemetry.GetBusinessEvents().TraceDraft(c.Request.Context(), "load", userID, channelID)
	draft, err := h.drafts.Load(ctx, userID, channelID)
	span.End()

	if err != nil {
		logger.Log.Warn("Draft load failed",
			zap.String("user_id", userID),
			zap.String("channel_id", channelID),
			zap.Error(err),
		)
		util.RespondInternalError(c, "failed to load draft")
		return
	}
	if draft == nil {
		util.RespondNotFound(c, "draft")
		return
	}

	middleware.RecordDraftRestored()
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

// DeleteDraft removes the saved draft for a channel
func (h *Handlers) DeleteDraft(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	channelID := c.Param("channelId")

	if h.drafts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "drafts_unavailable",
			"message": "draft persistence is not configured",
		})
		return
	}

	ctx, span := telemetry.GetBusinessEvents().TraceDraft(c.Request.Context(), "delete", userID, channelID)
	err := h.drafts.Delete(ctx, userID, channelID)
	span.End()

	if err != nil {
		util.RespondInternalError(c, "failed to delete draft")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
