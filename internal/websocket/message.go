package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// FlexibleTime handles both Unix millisecond timestamps and RFC3339 strings
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON implements custom unmarshaling for timestamps
func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	// Try to unmarshal as Unix milliseconds (integer)
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		ft.Time = time.UnixMilli(ms)
		return nil
	}

	// Fall back to RFC3339 string format
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be Unix milliseconds (integer) or RFC3339 string")
	}

	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

// MarshalJSON implements custom marshaling (always output as RFC3339)
func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// Message types for WebSocket communication
const (
	// System messages
	MessageTypeSystem = "system"
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"
	MessageTypeError  = "error"
	MessageTypeAuth   = "auth"

	// Composer messages
	MessageTypeComposerSnapshot = "composer_snapshot"
	MessageTypeDraftSaved       = "draft_saved"

	// Recording messages
	MessageTypeAudioChunk        = "audio_chunk"
	MessageTypeRecordingProgress = "recording_progress"
	MessageTypeRecordingFailed   = "recording_failed"

	// Presence messages
	MessageTypePresence    = "presence"
	MessageTypeUserOnline  = "user_online"
	MessageTypeUserOffline = "user_offline"

	// Typing indicators
	MessageTypeUserTyping     = "user_typing"      // User started typing in a channel
	MessageTypeUserStopTyping = "user_stop_typing" // User stopped typing

	// Channel subscription for typing fan-out
	MessageTypeChannelJoin  = "channel_join"
	MessageTypeChannelLeave = "channel_leave"
)

// Message represents a WebSocket message
type Message struct {
	// Type identifies the message type for routing
	Type string `json:"type"`

	// Payload contains the message-specific data
	Payload interface{} `json:"payload,omitempty"`

	// ID is a unique message identifier for acknowledgment
	ID string `json:"id,omitempty"`

	// ReplyTo references the original message ID for responses
	ReplyTo string `json:"reply_to,omitempty"`

	// Timestamp when the message was created (accepts Unix ms or RFC3339)
	Timestamp FlexibleTime `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewMessageWithID creates a new message with a specific ID
func NewMessageWithID(msgType string, id string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		ID:        id,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewReply creates a reply message to an original message
func NewReply(original *Message, msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		ReplyTo:   original.ID,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewErrorMessage creates an error message
func NewErrorMessage(code string, message string) *Message {
	return &Message{
		Type: MessageTypeError,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// ErrorPayload represents an error message payload
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PingPayload represents a ping message payload
type PingPayload struct {
	ClientTime int64 `json:"client_time"`
}

// PongPayload represents a pong message payload
type PongPayload struct {
	ClientTime int64 `json:"client_time"`
	ServerTime int64 `json:"server_time"`
	Latency    int64 `json:"latency_ms"`
}

// AuthPayload represents authentication message payload
type AuthPayload struct {
	Token  string `json:"token,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Status string `json:"status,omitempty"` // "success", "failed", "expired"
	Error  string `json:"error,omitempty"`
}

// PresencePayload represents presence update payload
type PresencePayload struct {
	UserID    string `json:"user_id"`
	Status    string `json:"status"` // "online", "offline"
	Timestamp int64  `json:"timestamp"`
}

// AudioChunkPayload carries a slice of PCM samples captured client-side
// during a voice recording. Samples are signed 16-bit values. Composer
// sessions are keyed by user and channel, so the channel identifies the
// recording session.
type AudioChunkPayload struct {
	ChannelID string `json:"channel_id"`
	Sequence  int    `json:"sequence"`
	Samples   []int  `json:"samples"`
}

// RecordingProgressPayload is pushed to the recording client as audio arrives
type RecordingProgressPayload struct {
	ChannelID    string  `json:"channel_id"`
	DurationMS   int64   `json:"duration_ms"`
	AveragePower float64 `json:"average_power"`
}

// RecordingFailedPayload notifies the client that capture broke mid-recording
type RecordingFailedPayload struct {
	ChannelID string `json:"channel_id"`
	Reason    string `json:"reason"`
}

// DraftSavedPayload confirms a draft write so other devices can refresh
type DraftSavedPayload struct {
	ChannelID string `json:"channel_id"`
	UpdatedAt int64  `json:"updated_at"`
}

// ChannelPayload subscribes or unsubscribes the connection to a channel's
// typing and presence fan-out.
type ChannelPayload struct {
	ChannelID string `json:"channel_id"`
}

// SystemPayload represents system event payloads
type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// TypingPayload indicates a user is typing in a channel
type TypingPayload struct {
	ChannelID   string `json:"channel_id"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// StopTypingPayload indicates a user stopped typing
type StopTypingPayload struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Timestamp int64  `json:"timestamp"`
}

// ParsePayload unmarshals the payload into a specific type
func (m *Message) ParsePayload(target interface{}) error {
	// If payload is already the right type, return
	if m.Payload == nil {
		return nil
	}

	// Re-marshal and unmarshal to properly type the payload
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
