// Package websocket carries the composer's real-time traffic: state
// snapshots, recording progress, draft sync, typing indicators and streamed
// PCM audio chunks. Built on github.com/coder/websocket.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxchat/backend/internal/logger"
	"go.uber.org/zap"
)

// Hub tracks every live connection and routes outbound messages. Clients are
// indexed twice: by user for composer/draft sync (a user may have several
// devices connected) and by channel for typing fan-out.
type Hub struct {
	// clients indexes connections by user ID; a user with the app open on
	// phone and tablet has two entries under one key.
	clients map[string]map[*Client]struct{}

	// allClients is the flat set used for global broadcast and shutdown.
	allClients map[*Client]struct{}

	// channels maps channel ID to the clients watching it. memberships is
	// the reverse index so unregister can clean up without a full scan.
	channels    map[string]map[*Client]struct{}
	memberships map[*Client]map[string]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	unicast    chan *userEnvelope
	chanSend   chan *channelEnvelope

	mu sync.RWMutex

	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// handlers routes inbound message types (audio_chunk, user_typing, ...)
	handlers map[string]MessageHandler

	rateLimitConfig RateLimitConfig
}

// Metrics tracks connection and traffic counters for /ws/metrics.
type Metrics struct {
	TotalConnections   atomic.Int64
	ActiveConnections  atomic.Int64
	MessagesReceived   atomic.Int64
	MessagesSent       atomic.Int64
	Errors             atomic.Int64
	ConnectionsDropped atomic.Int64
}

// RateLimitConfig bounds inbound message rate per client. Audio chunks
// arrive at a few per second during recording, so the defaults leave
// headroom for a recording plus typing traffic.
type RateLimitConfig struct {
	MaxMessagesPerSecond int
	BurstSize            int
	Window               time.Duration
}

// DefaultRateLimitConfig returns the production defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxMessagesPerSecond: 10,
		BurstSize:            20,
		Window:               time.Second,
	}
}

// userEnvelope targets every connection belonging to one user.
type userEnvelope struct {
	userID  string
	message *Message
}

// channelEnvelope targets the subscribers of one channel, optionally
// skipping the sender.
type channelEnvelope struct {
	channelID string
	message   *Message
	skip      *Client
}

// MessageHandler processes one inbound message type.
type MessageHandler func(client *Client, message *Message) error

// NewHub creates a hub; call Run in a goroutine to start it.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:         make(map[string]map[*Client]struct{}),
		allClients:      make(map[*Client]struct{}),
		channels:        make(map[string]map[*Client]struct{}),
		memberships:     make(map[*Client]map[string]struct{}),
		register:        make(chan *Client, 256),
		unregister:      make(chan *Client, 256),
		broadcast:       make(chan *Message, 256),
		unicast:         make(chan *userEnvelope, 256),
		chanSend:        make(chan *channelEnvelope, 256),
		metrics:         &Metrics{},
		ctx:             ctx,
		cancel:          cancel,
		handlers:        make(map[string]MessageHandler),
		rateLimitConfig: DefaultRateLimitConfig(),
	}
}

// RegisterHandler installs the handler for an inbound message type.
func (h *Hub) RegisterHandler(msgType string, handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[msgType] = handler
}

// GetHandler looks up the handler for a message type.
func (h *Hub) GetHandler(msgType string) (MessageHandler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	handler, ok := h.handlers[msgType]
	return handler, ok
}

// Run drives the hub event loop until Shutdown cancels it. Shutdown waits
// for this loop to finish disconnecting clients.
func (h *Hub) Run() {
	h.wg.Add(1)
	defer h.wg.Done()

	logger.Log.Info("🔌 WebSocket hub started")

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.fanOutAll(message)

		case env := <-h.unicast:
			h.fanOutUser(env.userID, env.message)

		case env := <-h.chanSend:
			h.fanOutChannel(env)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]struct{})
	}
	h.clients[client.UserID][client] = struct{}{}
	h.allClients[client] = struct{}{}

	h.metrics.TotalConnections.Add(1)
	h.metrics.ActiveConnections.Add(1)

	logger.Log.Info("✅ WebSocket client connected",
		zap.String("user_id", client.UserID),
		zap.Int64("active", h.metrics.ActiveConnections.Load()),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.allClients[client]; !ok {
		return
	}
	delete(h.allClients, client)

	if clients, ok := h.clients[client.UserID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.UserID)
		}
	}

	// Drop channel subscriptions via the reverse index.
	for channelID := range h.memberships[client] {
		if subs, ok := h.channels[channelID]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.channels, channelID)
			}
		}
	}
	delete(h.memberships, client)

	// Cancel the client rather than closing its outbox: ReadPump may still
	// be dispatching (a pong reply races the eviction), and Send on a closed
	// channel would panic. WritePump exits on the canceled context.
	client.disconnect()
	h.metrics.ActiveConnections.Add(-1)

	logger.Log.Info("WebSocket client disconnected",
		zap.String("user_id", client.UserID),
		zap.Int64("active", h.metrics.ActiveConnections.Load()),
	)
}

// Subscribe adds the client to a channel's typing/presence fan-out set.
// Subscriptions are dropped automatically when the client disconnects.
func (h *Hub) Subscribe(client *Client, channelID string) {
	if channelID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.allClients[client]; !ok {
		return
	}
	if h.channels[channelID] == nil {
		h.channels[channelID] = make(map[*Client]struct{})
	}
	h.channels[channelID][client] = struct{}{}
	if h.memberships[client] == nil {
		h.memberships[client] = make(map[string]struct{})
	}
	h.memberships[client][channelID] = struct{}{}
}

// Unsubscribe removes the client from a channel's fan-out set.
func (h *Hub) Unsubscribe(client *Client, channelID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.channels[channelID]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.channels, channelID)
		}
	}
	if chans, ok := h.memberships[client]; ok {
		delete(chans, channelID)
		if len(chans) == 0 {
			delete(h.memberships, client)
		}
	}
}

// deliver pushes pre-marshaled bytes into a client's outbox; a full outbox
// marks the connection for removal rather than blocking the hub.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.outbox <- data:
		h.metrics.MessagesSent.Add(1)
	default:
		h.metrics.ConnectionsDropped.Add(1)
		go func(c *Client) {
			h.unregister <- c
		}(client)
	}
}

func (h *Hub) fanOutAll(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Log.Error("Broadcast marshal failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.allClients {
		h.deliver(client, data)
	}
}

func (h *Hub) fanOutUser(userID string, message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Log.Error("Unicast marshal failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		h.deliver(client, data)
	}
}

func (h *Hub) fanOutChannel(env *channelEnvelope) {
	data, err := json.Marshal(env.message)
	if err != nil {
		logger.Log.Error("Channel send marshal failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.channels[env.channelID] {
		if client == env.skip {
			continue
		}
		h.deliver(client, data)
	}
}

// Broadcast queues a message for every connected client.
func (h *Hub) Broadcast(message *Message) {
	select {
	case h.broadcast <- message:
	case <-h.ctx.Done():
	}
}

// SendToUser queues a message for all of a user's connections.
func (h *Hub) SendToUser(userID string, message *Message) {
	select {
	case h.unicast <- &userEnvelope{userID: userID, message: message}:
	case <-h.ctx.Done():
	}
}

// SendToChannel queues a message for a channel's subscribers. skip, when
// non-nil, excludes that connection (typing relays skip the typist).
func (h *Hub) SendToChannel(channelID string, message *Message, skip *Client) {
	select {
	case h.chanSend <- &channelEnvelope{channelID: channelID, message: message, skip: skip}:
	case <-h.ctx.Done():
	}
}

// Register queues a client for registration.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister queues a client for removal.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// IsUserOnline reports whether the user has at least one live connection.
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients, ok := h.clients[userID]
	return ok && len(clients) > 0
}

// GetUserConnectionCount returns how many connections a user has open.
func (h *Hub) GetUserConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// GetChannelSubscriberCount returns how many connections watch a channel.
func (h *Hub) GetChannelSubscriberCount(channelID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channelID])
}

// GetOnlineUsers lists the IDs of every connected user.
func (h *Hub) GetOnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	return users
}

// GetMetrics snapshots the traffic counters.
func (h *Hub) GetMetrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalConnections:   h.metrics.TotalConnections.Load(),
		ActiveConnections:  h.metrics.ActiveConnections.Load(),
		MessagesReceived:   h.metrics.MessagesReceived.Load(),
		MessagesSent:       h.metrics.MessagesSent.Load(),
		Errors:             h.metrics.Errors.Load(),
		ConnectionsDropped: h.metrics.ConnectionsDropped.Load(),
	}
}

// MetricsSnapshot is a point-in-time copy of the hub counters.
type MetricsSnapshot struct {
	TotalConnections   int64 `json:"total_connections"`
	ActiveConnections  int64 `json:"active_connections"`
	MessagesReceived   int64 `json:"messages_received"`
	MessagesSent       int64 `json:"messages_sent"`
	Errors             int64 `json:"errors"`
	ConnectionsDropped int64 `json:"connections_dropped"`
}

func (m MetricsSnapshot) String() string {
	return fmt.Sprintf(
		"connections=%d/%d messages=rx:%d/tx:%d errors=%d dropped=%d",
		m.ActiveConnections, m.TotalConnections,
		m.MessagesReceived, m.MessagesSent,
		m.Errors, m.ConnectionsDropped,
	)
}

// Shutdown stops the event loop and waits for it to drain, or returns the
// context error if the deadline passes first.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Log.Info("🔌 WebSocket hub shut down")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

// closeAll notifies and disconnects every client during shutdown.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	shutdownMsg := NewMessage(MessageTypeSystem, SystemPayload{Event: "server_shutdown"})
	data, _ := json.Marshal(shutdownMsg)

	for client := range h.allClients {
		select {
		case client.outbox <- data:
		default:
		}
		client.disconnect()
	}

	logger.Log.Info("🔌 Closed WebSocket connections",
		zap.Int64("count", h.metrics.ActiveConnections.Load()))

	h.clients = make(map[string]map[*Client]struct{})
	h.allClients = make(map[*Client]struct{})
	h.channels = make(map[string]map[*Client]struct{})
	h.memberships = make(map[*Client]map[string]struct{})
}

// SetRateLimitConfig replaces the per-client rate limit; applies to clients
// connected after the change.
func (h *Hub) SetRateLimitConfig(config RateLimitConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rateLimitConfig = config
}

// GetRateLimitConfig returns the current per-client rate limit.
func (h *Hub) GetRateLimitConfig() RateLimitConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rateLimitConfig
}
