package stream

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	chat "github.com/GetStream/stream-chat-go/v5"
)

// Channel type configured in the Stream.io dashboard for direct messages.
const ChannelTypeMessaging = "messaging"

// Client wraps the Stream.io Chat client with voxchat-specific functionality
type Client struct {
	ChatClient *chat.Client
}

// ChatUser is the subset of a Stream user the composer cares about,
// primarily for mention autocomplete.
type ChatUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// OutgoingMessage is a message the composer hands to the chat backend.
// Attachment payloads are already uploaded; only public URLs travel here.
type OutgoingMessage struct {
	SenderID         string                 `json:"sender_id"`
	Text             string                 `json:"text"`
	Command          string                 `json:"command,omitempty"`
	Attachments      []Attachment           `json:"attachments,omitempty"`
	QuotedMessageID  string                 `json:"quoted_message_id,omitempty"`
	MentionedUserIDs []string               `json:"mentioned_user_ids,omitempty"`
	ExtraData        map[string]interface{} `json:"extra_data,omitempty"`
}

// Attachment is the wire shape of a message attachment.
type Attachment struct {
	Type     string                 `json:"type"`
	Title    string                 `json:"title,omitempty"`
	AssetURL string                 `json:"asset_url,omitempty"`
	ImageURL string                 `json:"image_url,omitempty"`
	MIMEType string                 `json:"mime_type,omitempty"`
	Duration float64                `json:"duration,omitempty"`
	Waveform []float64              `json:"waveform,omitempty"`
	Extra    map[string]interface{} `json:"extra,omitempty"`
}

// NewClient creates a new Stream.io Chat client for voxchat
func NewClient() (*Client, error) {
	apiKey := os.Getenv("STREAM_API_KEY")
	apiSecret := os.Getenv("STREAM_API_SECRET")

	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("STREAM_API_KEY and STREAM_API_SECRET must be set")
	}

	chatClient, err := chat.NewClient(apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create Stream.io Chat client: %w", err)
	}

	return &Client{ChatClient: chatClient}, nil
}

// UpsertUser creates or updates a Stream.io chat user
func (c *Client) UpsertUser(ctx context.Context, userID, username string) error {
	user := &chat.User{
		ID:   userID,
		Name: username,
	}
	_, err := c.ChatClient.UpsertUser(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to upsert chat user: %w", err)
	}
	return nil
}

// CreateToken creates a JWT token for client-side chat authentication
func (c *Client) CreateToken(userID string, expiration time.Time) (string, error) {
	token, err := c.ChatClient.CreateToken(userID, expiration)
	if err != nil {
		return "", fmt.Errorf("failed to create token: %w", err)
	}
	return token, nil
}

// QueryUsersByName resolves users whose name matches the typed token,
// used by the mention autocomplete flow.
func (c *Client) QueryUsersByName(ctx context.Context, nameToken string, limit int) ([]*ChatUser, error) {
	if limit <= 0 {
		limit = 10
	}
	resp, err := c.ChatClient.QueryUsers(ctx, &chat.QueryOption{
		Filter: map[string]interface{}{
			"name": map[string]interface{}{"$autocomplete": nameToken},
		},
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	users := make([]*ChatUser, 0, len(resp.Users))
	for _, u := range resp.Users {
		cu := &ChatUser{ID: u.ID, Name: u.Name}
		if img, ok := u.ExtraData["image"].(string); ok {
			cu.Image = img
		}
		users = append(users, cu)
	}
	return users, nil
}

// CreateDirectChannel creates (or returns) a messaging channel between the
// creator and the given members. The channel id is derived from the sorted
// member set so the same pair always lands in the same channel.
func (c *Client) CreateDirectChannel(ctx context.Context, creatorID string, memberIDs ...string) (string, error) {
	members := append([]string{creatorID}, memberIDs...)
	sort.Strings(members)
	channelID := strings.Join(members, "-")

	_, err := c.ChatClient.CreateChannel(ctx, ChannelTypeMessaging, channelID, creatorID, &chat.ChannelRequest{
		Members: members,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create channel: %w", err)
	}
	return channelID, nil
}

// SendMessage posts a message to a messaging channel and returns the
// message id assigned by Stream.
func (c *Client) SendMessage(ctx context.Context, channelID string, msg *OutgoingMessage) (string, error) {
	ch := c.ChatClient.Channel(ChannelTypeMessaging, channelID)

	resp, err := ch.SendMessage(ctx, toChatMessage(msg), msg.SenderID)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return resp.Message.ID, nil
}

// UpdateMessage replaces the text and attachments of an existing message.
func (c *Client) UpdateMessage(ctx context.Context, messageID string, msg *OutgoingMessage) error {
	m := toChatMessage(msg)
	m.User = &chat.User{ID: msg.SenderID}
	_, err := c.ChatClient.UpdateMessage(ctx, m, messageID)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	return nil
}

// toChatMessage converts an OutgoingMessage to the SDK message type
func toChatMessage(msg *OutgoingMessage) *chat.Message {
	// Stream recognizes slash commands by the message text. Instant-command
	// sessions carry only the argument as text, so the command name has to be
	// stitched back in front; text typed with a literal "/giphy ..." already
	// carries it.
	text := msg.Text
	if msg.Command != "" && !strings.HasPrefix(strings.TrimSpace(text), "/"+msg.Command) {
		text = strings.TrimSpace("/" + msg.Command + " " + text)
	}

	m := &chat.Message{
		Text:            text,
		QuotedMessageID: msg.QuotedMessageID,
	}

	for _, id := range msg.MentionedUserIDs {
		m.MentionedUsers = append(m.MentionedUsers, &chat.User{ID: id})
	}

	for _, att := range msg.Attachments {
		ca := &chat.Attachment{
			Type:     att.Type,
			Title:    att.Title,
			AssetURL: att.AssetURL,
			ImageURL: att.ImageURL,
		}
		extra := map[string]interface{}{}
		for k, v := range att.Extra {
			extra[k] = v
		}
		if att.MIMEType != "" {
			extra["mime_type"] = att.MIMEType
		}
		if att.Duration > 0 {
			extra["duration"] = att.Duration
		}
		if len(att.Waveform) > 0 {
			extra["waveform_data"] = att.Waveform
		}
		if len(extra) > 0 {
			ca.ExtraData = extra
		}
		m.Attachments = append(m.Attachments, ca)
	}

	if msg.ExtraData != nil {
		m.ExtraData = msg.ExtraData
	}

	return m
}
