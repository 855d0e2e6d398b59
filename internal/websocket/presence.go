package websocket

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voxchat/backend/internal/database"
	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/models"
)

// PresenceStatus is a user's connection-level status.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// UserPresence is one user's presence record.
type UserPresence struct {
	UserID       string         `json:"user_id"`
	Username     string         `json:"username"`
	Status       PresenceStatus `json:"status"`
	LastActivity time.Time      `json:"last_activity"`
	ConnectedAt  time.Time      `json:"connected_at"`
}

func (p *UserPresence) clone() *UserPresence {
	c := *p
	return &c
}

// PresenceManager tracks who is online, broadcasts transitions, and mirrors
// the online flag to the users table so mention autocomplete can rank by it.
type PresenceManager struct {
	hub *Hub

	presence map[string]*UserPresence
	mu       sync.RWMutex

	// Users with no activity for this long are swept offline unless they
	// still hold a live connection.
	timeoutDuration time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// PresenceConfig configures the presence manager.
type PresenceConfig struct {
	TimeoutDuration time.Duration
}

// DefaultPresenceConfig returns the production defaults.
func DefaultPresenceConfig() PresenceConfig {
	return PresenceConfig{
		TimeoutDuration: 5 * time.Minute,
	}
}

// NewPresenceManager creates a presence manager; call Start to begin the
// timeout sweeper.
func NewPresenceManager(hub *Hub, config PresenceConfig) *PresenceManager {
	ctx, cancel := context.WithCancel(context.Background())

	if config.TimeoutDuration == 0 {
		config.TimeoutDuration = 5 * time.Minute
	}

	return &PresenceManager{
		hub:             hub,
		presence:        make(map[string]*UserPresence),
		timeoutDuration: config.TimeoutDuration,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// Start launches the timeout sweeper and installs the presence handler.
func (pm *PresenceManager) Start() {
	go pm.runTimeoutSweeper()

	pm.hub.RegisterHandler(MessageTypePresence, func(client *Client, msg *Message) error {
		var payload PresencePayload
		if err := msg.ParsePayload(&payload); err != nil {
			return err
		}
		pm.UpdatePresence(client.UserID, client.Username, StatusOnline)
		return nil
	})

	logger.Log.Info("👤 Presence manager started")
}

// Stop halts the sweeper and marks everyone offline.
func (pm *PresenceManager) Stop() {
	pm.cancel()

	pm.mu.Lock()
	for userID := range pm.presence {
		pm.setOfflineLocked(userID)
	}
	pm.mu.Unlock()

	logger.Log.Info("👤 Presence manager stopped")
}

// OnClientConnect marks the user online when a connection opens.
func (pm *PresenceManager) OnClientConnect(client *Client) {
	pm.UpdatePresence(client.UserID, client.Username, StatusOnline)
}

// OnClientDisconnect marks the user offline when their last connection drops.
func (pm *PresenceManager) OnClientDisconnect(client *Client) {
	if pm.hub.GetUserConnectionCount(client.UserID) <= 1 {
		pm.SetOffline(client.UserID)
	}
}

// UpdatePresence refreshes a user's record and broadcasts the transition if
// they just came online.
func (pm *PresenceManager) UpdatePresence(userID, username string, status PresenceStatus) {
	pm.mu.Lock()

	existing := pm.presence[userID]
	cameOnline := existing == nil || existing.Status == StatusOffline

	now := time.Now()
	if existing == nil {
		pm.presence[userID] = &UserPresence{
			UserID:       userID,
			Username:     username,
			Status:       status,
			LastActivity: now,
			ConnectedAt:  now,
		}
	} else {
		existing.Status = status
		existing.LastActivity = now
		if existing.Username == "" {
			existing.Username = username
		}
	}
	pm.mu.Unlock()

	go pm.persistPresence(userID, status == StatusOnline)

	if cameOnline {
		pm.hub.Broadcast(NewMessage(MessageTypeUserOnline, PresencePayload{
			UserID:    userID,
			Status:    string(StatusOnline),
			Timestamp: now.UnixMilli(),
		}))
	}
}

// SetOffline marks a user offline and broadcasts the transition.
func (pm *PresenceManager) SetOffline(userID string) {
	pm.mu.Lock()
	pm.setOfflineLocked(userID)
	pm.mu.Unlock()
}

func (pm *PresenceManager) setOfflineLocked(userID string) {
	presence, ok := pm.presence[userID]
	if !ok {
		return
	}

	wasOnline := presence.Status != StatusOffline
	presence.Status = StatusOffline
	presence.LastActivity = time.Now()

	if wasOnline {
		go pm.persistPresence(userID, false)

		pm.hub.Broadcast(NewMessage(MessageTypeUserOffline, PresencePayload{
			UserID:    userID,
			Status:    string(StatusOffline),
			Timestamp: time.Now().UnixMilli(),
		}))
	}
}

// GetOnlinePresence returns the online subset of the requested users.
func (pm *PresenceManager) GetOnlinePresence(userIDs []string) map[string]*UserPresence {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	result := make(map[string]*UserPresence)
	for _, userID := range userIDs {
		if presence, ok := pm.presence[userID]; ok && presence.Status != StatusOffline {
			result[userID] = presence.clone()
		}
	}
	return result
}

func (pm *PresenceManager) runTimeoutSweeper() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-pm.ctx.Done():
			return
		case <-ticker.C:
			pm.sweepTimeouts()
		}
	}
}

// sweepTimeouts expires users with stale activity. A user who still holds a
// live connection gets their activity refreshed instead.
func (pm *PresenceManager) sweepTimeouts() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	cutoff := time.Now().Add(-pm.timeoutDuration)

	for userID, presence := range pm.presence {
		if presence.Status == StatusOffline || !presence.LastActivity.Before(cutoff) {
			continue
		}
		if pm.hub.IsUserOnline(userID) {
			presence.LastActivity = time.Now()
			continue
		}
		logger.Log.Debug("👤 Presence timeout",
			zap.String("user_id", userID),
			zap.Time("last_activity", presence.LastActivity))
		pm.setOfflineLocked(userID)
	}
}

// persistPresence mirrors the flag to the users table. Best effort; the
// in-memory state is authoritative for the fan-out.
func (pm *PresenceManager) persistPresence(userID string, isOnline bool) {
	if database.DB == nil {
		return
	}

	updates := map[string]interface{}{
		"is_online":      isOnline,
		"last_active_at": time.Now(),
	}
	if err := database.DB.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		logger.Log.Warn("Presence persist failed",
			zap.String("user_id", userID),
			zap.Error(err))
	}
}
