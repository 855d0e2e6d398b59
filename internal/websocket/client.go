package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/voxchat/backend/internal/logger"
	"go.uber.org/zap"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may go silent before the read
	// loop gives up on it.
	pongWait = 45 * time.Second

	// pingPeriod must beat pongWait with margin.
	pingPeriod = 20 * time.Second

	// maxMessageSize caps inbound frames. Audio chunks arrive as JSON
	// arrays of PCM samples, so a second of 48kHz audio needs real room.
	maxMessageSize = 1024 * 1024

	// outboxSize buffers outbound frames per connection.
	outboxSize = 256
)

// Client is one WebSocket connection for one authenticated user.
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	UserID   string
	Username string

	// outbox holds marshaled frames awaiting WritePump. Never closed;
	// the pumps exit via ctx cancellation so Send can never race a close.
	outbox chan []byte

	ConnectedAt time.Time
	RemoteAddr  string
	UserAgent   string

	rateLimiter *RateLimiter

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// RateLimiter is a token bucket guarding inbound message rate.
type RateLimiter struct {
	tokens    float64
	maxTokens float64
	refill    float64
	lastTime  time.Time
	mu        sync.Mutex
}

// NewRateLimiter allows maxPerSecond sustained with bursts up to burst.
func NewRateLimiter(maxPerSecond int, burst int) *RateLimiter {
	return &RateLimiter{
		tokens:    float64(burst),
		maxTokens: float64(burst),
		refill:    float64(maxPerSecond),
		lastTime:  time.Now(),
	}
}

// Allow consumes a token if one is available.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastTime).Seconds()
	r.lastTime = now

	r.tokens += elapsed * r.refill
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}

	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// NewClient wraps an accepted connection. The caller starts WritePump in a
// goroutine and then blocks on ReadPump.
func NewClient(hub *Hub, conn *websocket.Conn, userID, username string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	config := hub.GetRateLimitConfig()

	return &Client{
		hub:         hub,
		conn:        conn,
		UserID:      userID,
		Username:    username,
		outbox:      make(chan []byte, outboxSize),
		ConnectedAt: time.Now(),
		rateLimiter: NewRateLimiter(config.MaxMessagesPerSecond, config.BurstSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ReadPump reads frames until the connection drops, routing each message to
// its registered handler. Blocks; unregisters the client on return.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		readCtx, readCancel := context.WithTimeout(c.ctx, pongWait)
		_, data, err := c.conn.Read(readCtx)
		readCancel()

		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && c.ctx.Err() == nil {
				logger.Log.Warn("WebSocket read failed",
					zap.String("user_id", c.UserID),
					zap.Error(err))
				c.hub.metrics.Errors.Add(1)
			}
			return
		}

		if !c.rateLimiter.Allow() {
			c.SendError("rate_limited", "too many messages, slow down")
			c.hub.metrics.Errors.Add(1)
			continue
		}

		c.hub.metrics.MessagesReceived.Add(1)

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			c.SendError("invalid_json", "failed to parse message")
			continue
		}

		c.dispatch(&message)
	}
}

// WritePump drains the outbox to the wire and keeps the connection alive
// with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.Close(websocket.StatusGoingAway, "server shutdown")
			return

		case frame := <-c.outbox:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, frame)
			cancel()

			if err != nil {
				c.hub.metrics.Errors.Add(1)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()

			if err != nil {
				return
			}
		}
	}
}

// dispatch routes one inbound message. Pings and re-auth are handled here;
// everything else goes through the hub's handler table.
func (c *Client) dispatch(message *Message) {
	if message.Timestamp.IsZero() {
		message.Timestamp = FlexibleTime{Time: time.Now().UTC()}
	}

	switch message.Type {
	case MessageTypePing, "heartbeat": // some clients send "heartbeat"
		c.handlePing(message)
		return

	case MessageTypeAuth:
		// Auth happens at upgrade time; just confirm identity.
		c.Send(NewMessage(MessageTypeAuth, AuthPayload{
			UserID: c.UserID,
			Status: "authenticated",
		}))
		return
	}

	if handler, ok := c.hub.GetHandler(message.Type); ok {
		if err := handler(c, message); err != nil {
			logger.Log.Warn("WebSocket handler failed",
				zap.String("type", message.Type),
				zap.String("user_id", c.UserID),
				zap.Error(err))
			c.SendError("handler_error", fmt.Sprintf("failed to process %s", message.Type))
		}
		return
	}

	c.SendError("unknown_type", fmt.Sprintf("unknown message type: %s", message.Type))
}

func (c *Client) handlePing(message *Message) {
	var ping PingPayload
	if err := message.ParsePayload(&ping); err != nil {
		ping.ClientTime = 0
	}

	serverTime := time.Now().UnixMilli()
	pong := NewMessage(MessageTypePong, PongPayload{
		ClientTime: ping.ClientTime,
		ServerTime: serverTime,
		Latency:    serverTime - ping.ClientTime,
	})
	if message.ID != "" {
		pong.ReplyTo = message.ID
	}

	// Best effort; the connection may already be closing.
	_ = c.Send(pong)
}

// Send queues a message for this connection. Returns an error if the
// connection is closed or the outbox is full.
func (c *Client) Send(message *Message) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return fmt.Errorf("client connection closed")
	}
	c.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case c.outbox <- data:
		return nil
	case <-c.ctx.Done():
		return fmt.Errorf("client shutting down")
	default:
		return fmt.Errorf("send buffer full")
	}
}

// SendError queues an error frame for this connection.
func (c *Client) SendError(code, message string) {
	c.Send(NewErrorMessage(code, message))
}

// disconnect marks the client closed and cancels its pumps without touching
// the connection, so the hub can evict a client while both pumps are live.
func (c *Client) disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	if c.cancel != nil {
		c.cancel()
	}
}

// Close tears down the connection. Safe to call more than once.
func (c *Client) Close() {
	c.disconnect()
	c.conn.Close(websocket.StatusNormalClosure, "closing")
}

// IsClosed reports whether Close has run.
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
