package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voxchat/backend/internal/giphy"
	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/middleware"
	"github.com/voxchat/backend/internal/telemetry"
	"github.com/voxchat/backend/internal/util"
)

// gifCacheTTL bounds how long a translated phrase keeps serving the same GIF
const gifCacheTTL = 15 * time.Minute

// ListCommands returns the slash commands the composer understands
func (h *Handlers) ListCommands(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"commands": h.commands.All()})
}

// GiphyPreview resolves a /giphy argument to a single GIF so the client can
// render the preview bubble before sending.
func (h *Handlers) GiphyPreview(c *gin.Context) {
	phrase := strings.TrimSpace(c.Query("q"))
	if phrase == "" {
		util.RespondBadRequest(c, "q", "search phrase is required")
		return
	}

	if h.giphy == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "giphy_unavailable",
			"message": "GIPHY integration is not configured",
		})
		return
	}

	cacheKey := middleware.CacheKey("giphy:translate", middleware.HashToken(strings.ToLower(phrase)))
	if raw, found, _ := h.gifCache.GetCached(c.Request.Context(), cacheKey); found {
		var cached giphy.GIF
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			middleware.RecordCacheHit("gif_search")
			c.JSON(http.StatusOK, gin.H{"gif": &cached})
			return
		}
	}
	middleware.RecordCacheMiss("gif_search")

	ctx, span := telemetry.TraceGiphyCall(c.Request.Context(), "translate", map[string]interface{}{
		"phrase": phrase,
	})
	gif, err := h.giphy.Translate(ctx, phrase)
	if err != nil {
		telemetry.RecordServiceError(span, "giphy", err)
		span.End()
		logger.Log.Warn("GIPHY translate failed", zap.String("phrase", phrase), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "giphy_failed",
			"message": "could not fetch a GIF for that phrase",
		})
		return
	}
	telemetry.RecordServiceSuccess(span, map[string]interface{}{
		"gif_id": gif.ID,
	})
	span.End()

	if raw, err := json.Marshal(gif); err == nil {
		h.gifCache.SetCached(c.Request.Context(), cacheKey, string(raw), gifCacheTTL)
	}

	c.JSON(http.StatusOK, gin.H{"gif": gif})
}
