package websocket

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voxchat/backend/internal/auth"
	"github.com/voxchat/backend/internal/composer"
	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/models"
)

// AudioIngester accepts raw PCM samples from a transport. The server-side
// recorder implements it; the session's Recorder is type-asserted at the
// websocket boundary so the composer package stays transport-agnostic.
type AudioIngester interface {
	Ingest(samples []int)
}

// Handler handles WebSocket HTTP upgrade requests
type Handler struct {
	hub             *Hub
	authService     auth.AuthServiceInterface
	composer        *composer.Manager
	presenceManager *PresenceManager
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, authService auth.AuthServiceInterface, manager *composer.Manager) *Handler {
	return &Handler{
		hub:         hub,
		authService: authService,
		composer:    manager,
	}
}

// SetPresenceManager sets the presence manager for the handler
func (h *Handler) SetPresenceManager(pm *PresenceManager) {
	h.presenceManager = pm
}

// GetPresenceManager returns the presence manager
func (h *Handler) GetPresenceManager() *PresenceManager {
	return h.presenceManager
}

// HandleWebSocket handles WebSocket upgrade requests
// Authentication is done via JWT token in query param: ?token=...
// Or via Authorization header: Bearer <token>
func (h *Handler) HandleWebSocket(c *gin.Context) {
	// Extract and validate JWT token
	user, err := h.authenticateRequest(c)
	if err != nil {
		logger.Log.Warn("WebSocket auth failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "authentication_failed",
			"message": err.Error(),
		})
		return
	}

	// Upgrade the HTTP connection to WebSocket
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		// In production, set specific origins
		InsecureSkipVerify: true, // TODO: Configure CORS properly for production
		CompressionMode:    websocket.CompressionContextTakeover,
	})
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	// Create client
	client := NewClient(h.hub, conn, user.ID, user.Username)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")

	// Register client with hub
	h.hub.Register(client)

	// Notify presence manager of connection
	if h.presenceManager != nil {
		h.presenceManager.OnClientConnect(client)
	}

	// Send welcome message
	client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event:   "connected",
		Message: "Welcome to VoxChat!",
		Data: map[string]interface{}{
			"user_id":     user.ID,
			"username":    user.Username,
			"server_time": time.Now().UTC().UnixMilli(),
			"session_id":  fmt.Sprintf("%p", client),
		},
	}))

	// Start client read/write pumps
	go client.WritePump()
	client.ReadPump() // This blocks until client disconnects

	// Client disconnected - notify presence manager
	if h.presenceManager != nil {
		h.presenceManager.OnClientDisconnect(client)
	}
}

// authenticateRequest extracts and validates the token from the request
func (h *Handler) authenticateRequest(c *gin.Context) (*models.User, error) {
	tokenString := ""

	// First check query parameter
	if token := c.Query("token"); token != "" {
		tokenString = token
	}

	// Then check Authorization header
	if auth := c.GetHeader("Authorization"); auth != "" {
		// Support "Bearer <token>" format
		if strings.HasPrefix(auth, "Bearer ") {
			tokenString = strings.TrimPrefix(auth, "Bearer ")
		} else {
			tokenString = auth
		}
	}

	if tokenString == "" {
		return nil, fmt.Errorf("no authentication token provided")
	}

	user, err := h.authService.ValidateToken(tokenString)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	return user, nil
}

// HandleMetrics returns WebSocket metrics (for monitoring)
func (h *Handler) HandleMetrics(c *gin.Context) {
	metrics := h.hub.GetMetrics()
	c.JSON(http.StatusOK, gin.H{
		"websocket":    metrics,
		"online_users": h.hub.GetOnlineUsers(),
		"timestamp":    time.Now().UTC(),
	})
}

// HandleOnlineStatus checks if specific users are online
func (h *Handler) HandleOnlineStatus(c *gin.Context) {
	var req struct {
		UserIDs []string `json:"user_ids" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	statuses := make(map[string]bool)
	for _, userID := range req.UserIDs {
		statuses[userID] = h.hub.IsUserOnline(userID)
	}

	c.JSON(http.StatusOK, gin.H{
		"statuses":  statuses,
		"timestamp": time.Now().UTC(),
	})
}

// HandlePresenceStatus returns detailed presence information for users
func (h *Handler) HandlePresenceStatus(c *gin.Context) {
	var req struct {
		UserIDs []string `json:"user_ids" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.presenceManager == nil {
		// Fallback to basic online status
		statuses := make(map[string]interface{})
		for _, userID := range req.UserIDs {
			if h.hub.IsUserOnline(userID) {
				statuses[userID] = map[string]interface{}{
					"status": "online",
				}
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"presence":  statuses,
			"timestamp": time.Now().UTC(),
		})
		return
	}

	// Get detailed presence from manager
	presence := h.presenceManager.GetOnlinePresence(req.UserIDs)

	// Convert to JSON-friendly format
	result := make(map[string]interface{})
	for userID, p := range presence {
		result[userID] = map[string]interface{}{
			"status":        p.Status,
			"last_activity": p.LastActivity.UnixMilli(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"presence":     result,
		"online_count": len(presence),
		"timestamp":    time.Now().UTC(),
	})
}

// RegisterDefaultHandlers registers the default message handlers
func (h *Handler) RegisterDefaultHandlers() {
	// Clients join the channels they have open; typing indicators only fan
	// out to subscribers.
	h.hub.RegisterHandler(MessageTypeChannelJoin, func(client *Client, msg *Message) error {
		var payload ChannelPayload
		if err := msg.ParsePayload(&payload); err != nil {
			return err
		}
		if payload.ChannelID == "" {
			return fmt.Errorf("join missing channel_id")
		}
		h.hub.Subscribe(client, payload.ChannelID)
		return nil
	})

	h.hub.RegisterHandler(MessageTypeChannelLeave, func(client *Client, msg *Message) error {
		var payload ChannelPayload
		if err := msg.ParsePayload(&payload); err != nil {
			return err
		}
		h.hub.Unsubscribe(client, payload.ChannelID)
		return nil
	})

	// Typing relays go to the channel's other subscribers. Typing implies
	// watching, so the typist is subscribed as a side effect.
	h.hub.RegisterHandler(MessageTypeUserTyping, func(client *Client, msg *Message) error {
		var payload TypingPayload
		if err := msg.ParsePayload(&payload); err != nil {
			return err
		}
		if payload.ChannelID == "" {
			return fmt.Errorf("typing missing channel_id")
		}

		payload.UserID = client.UserID
		payload.Username = client.Username
		payload.Timestamp = time.Now().UnixMilli()

		h.hub.Subscribe(client, payload.ChannelID)
		h.hub.SendToChannel(payload.ChannelID, NewMessage(MessageTypeUserTyping, payload), client)
		return nil
	})

	h.hub.RegisterHandler(MessageTypeUserStopTyping, func(client *Client, msg *Message) error {
		var payload StopTypingPayload
		if err := msg.ParsePayload(&payload); err != nil {
			return err
		}

		payload.UserID = client.UserID
		payload.Timestamp = time.Now().UnixMilli()

		h.hub.SendToChannel(payload.ChannelID, NewMessage(MessageTypeUserStopTyping, payload), client)
		return nil
	})

	// Audio chunk handler: feed PCM samples into the active recording for the
	// sender's composer session in that channel.
	h.hub.RegisterHandler(MessageTypeAudioChunk, func(client *Client, msg *Message) error {
		var payload AudioChunkPayload
		if err := msg.ParsePayload(&payload); err != nil {
			return err
		}
		if payload.ChannelID == "" {
			return fmt.Errorf("audio chunk missing channel_id")
		}
		if h.composer == nil {
			return fmt.Errorf("composer manager not configured")
		}

		session, ok := h.composer.Get(client.UserID, payload.ChannelID)
		if !ok {
			return fmt.Errorf("no composer session for channel %s", payload.ChannelID)
		}

		ingester, ok := session.Recorder().(AudioIngester)
		if !ok {
			return fmt.Errorf("recorder does not accept streamed audio")
		}

		ingester.Ingest(payload.Samples)

		// Per-chunk capture feedback: a lightweight progress frame keeps
		// the recording meter live between full snapshots, and a recorder
		// failure surfaces to every device immediately.
		snap := session.Snapshot()
		if snap.RecordingFailed && snap.Recording.Phase == composer.RecordingInitial {
			h.NotifyRecordingFailed(client.UserID, &RecordingFailedPayload{
				ChannelID: payload.ChannelID,
				Reason:    "recorder failed during capture",
			})
			return nil
		}

		var power float64
		if n := len(snap.RecordingInfo.Waveform); n > 0 {
			power = snap.RecordingInfo.Waveform[n-1]
		}
		h.NotifyRecordingProgress(client.UserID, &RecordingProgressPayload{
			ChannelID:    payload.ChannelID,
			DurationMS:   snap.RecordingInfo.Duration.Milliseconds(),
			AveragePower: power,
		})
		return nil
	})

	logger.Log.Info("📨 Registered default WebSocket message handlers")
}

// NotifyComposerSnapshot pushes a composer state snapshot to all of the
// user's connections. Wired as a session observer when a session opens.
func (h *Handler) NotifyComposerSnapshot(userID string, snap composer.Snapshot) {
	h.hub.SendToUser(userID, NewMessage(MessageTypeComposerSnapshot, snap))
}

// NotifyRecordingProgress pushes capture progress to the recording client
func (h *Handler) NotifyRecordingProgress(userID string, payload *RecordingProgressPayload) {
	h.hub.SendToUser(userID, NewMessage(MessageTypeRecordingProgress, payload))
}

// NotifyRecordingFailed tells the client a recording broke mid-capture
func (h *Handler) NotifyRecordingFailed(userID string, payload *RecordingFailedPayload) {
	h.hub.SendToUser(userID, NewMessage(MessageTypeRecordingFailed, payload))
}

// NotifyDraftSaved confirms a draft write to the user's other devices
func (h *Handler) NotifyDraftSaved(userID string, channelID string) {
	h.hub.SendToUser(userID, NewMessage(MessageTypeDraftSaved, DraftSavedPayload{
		ChannelID: channelID,
		UpdatedAt: time.Now().UnixMilli(),
	}))
}

// Shutdown gracefully shuts down the WebSocket handler
func (h *Handler) Shutdown(ctx context.Context) error {
	return h.hub.Shutdown(ctx)
}

// GetHub returns the hub for external access
func (h *Handler) GetHub() *Hub {
	return h.hub
}
