package stream

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewClient tests getstream.io client initialization
func TestNewClient(t *testing.T) {
	// Test without credentials - should fail
	originalKey := os.Getenv("STREAM_API_KEY")
	originalSecret := os.Getenv("STREAM_API_SECRET")

	os.Setenv("STREAM_API_KEY", "")
	os.Setenv("STREAM_API_SECRET", "")
	defer func() {
		os.Setenv("STREAM_API_KEY", originalKey)
		os.Setenv("STREAM_API_SECRET", originalSecret)
	}()

	_, err := NewClient()
	assert.Error(t, err, "Should fail without credentials")
	assert.Contains(t, err.Error(), "STREAM_API_KEY")
}

// TestNewClientWithCredentials tests client initialization with credentials
func TestNewClientWithCredentials(t *testing.T) {
	if os.Getenv("STREAM_API_KEY") == "" || os.Getenv("STREAM_API_SECRET") == "" {
		t.Skip("STREAM_API_KEY and STREAM_API_SECRET not set, skipping")
	}

	client, err := NewClient()
	assert.NoError(t, err, "Should create client with valid credentials")
	assert.NotNil(t, client, "Client should not be nil")
	assert.NotNil(t, client.ChatClient, "ChatClient should not be nil")
}

// TestToChatMessageText tests text and quote conversion
func TestToChatMessageText(t *testing.T) {
	m := toChatMessage(&OutgoingMessage{
		Text:            "hey there",
		QuotedMessageID: "msg-42",
	})

	assert.Equal(t, "hey there", m.Text)
	assert.Equal(t, "msg-42", m.QuotedMessageID)
	assert.Empty(t, m.Attachments)
	assert.Empty(t, m.MentionedUsers)
}

// TestToChatMessageInstantCommand tests that an instant command is restored
// as slash-command text so Stream still treats the message as a command
func TestToChatMessageInstantCommand(t *testing.T) {
	m := toChatMessage(&OutgoingMessage{
		Text:    "cats",
		Command: "giphy",
	})

	assert.Equal(t, "/giphy cats", m.Text)
}

// TestToChatMessageTypedCommandNotDoubled tests that text already carrying
// the slash command is left alone
func TestToChatMessageTypedCommandNotDoubled(t *testing.T) {
	m := toChatMessage(&OutgoingMessage{
		Text:    "/giphy cats",
		Command: "giphy",
	})

	assert.Equal(t, "/giphy cats", m.Text)
}

// TestToChatMessageMentions tests mentioned user conversion
func TestToChatMessageMentions(t *testing.T) {
	m := toChatMessage(&OutgoingMessage{
		Text:             "ping @amy @bob",
		MentionedUserIDs: []string{"u-amy", "u-bob"},
	})

	require.Len(t, m.MentionedUsers, 2)
	assert.Equal(t, "u-amy", m.MentionedUsers[0].ID)
	assert.Equal(t, "u-bob", m.MentionedUsers[1].ID)
}

// TestToChatMessageVoiceAttachment tests voice recording attachment conversion
func TestToChatMessageVoiceAttachment(t *testing.T) {
	m := toChatMessage(&OutgoingMessage{
		Attachments: []Attachment{
			{
				Type:     "voiceRecording",
				Title:    "Recording",
				AssetURL: "https://cdn.example.com/voice/abc.wav",
				MIMEType: "audio/wav",
				Duration: 3.5,
				Waveform: []float64{0.1, 0.4, 0.2},
			},
		},
	})

	require.Len(t, m.Attachments, 1)
	att := m.Attachments[0]
	assert.Equal(t, "voiceRecording", att.Type)
	assert.Equal(t, "https://cdn.example.com/voice/abc.wav", att.AssetURL)
	assert.Equal(t, "audio/wav", att.ExtraData["mime_type"])
	assert.Equal(t, 3.5, att.ExtraData["duration"])
	assert.Equal(t, []float64{0.1, 0.4, 0.2}, att.ExtraData["waveform_data"])
}

// TestToChatMessageImageAttachment tests that images use image_url, not asset_url
func TestToChatMessageImageAttachment(t *testing.T) {
	m := toChatMessage(&OutgoingMessage{
		Attachments: []Attachment{
			{Type: "image", ImageURL: "https://cdn.example.com/img/1.jpg"},
		},
	})

	require.Len(t, m.Attachments, 1)
	assert.Equal(t, "https://cdn.example.com/img/1.jpg", m.Attachments[0].ImageURL)
	assert.Empty(t, m.Attachments[0].AssetURL)
	assert.Nil(t, m.Attachments[0].ExtraData)
}

// TestToChatMessageAttachmentExtra tests custom extra data passthrough
func TestToChatMessageAttachmentExtra(t *testing.T) {
	m := toChatMessage(&OutgoingMessage{
		Attachments: []Attachment{
			{
				Type:     "custom",
				AssetURL: "https://example.com/thing",
				Extra:    map[string]interface{}{"sticker_pack": "dogs"},
			},
		},
	})

	require.Len(t, m.Attachments, 1)
	assert.Equal(t, "dogs", m.Attachments[0].ExtraData["sticker_pack"])
}

// TestToChatMessageExtraData tests message-level extra data passthrough
func TestToChatMessageExtraData(t *testing.T) {
	m := toChatMessage(&OutgoingMessage{
		Text:      "hello",
		ExtraData: map[string]interface{}{"client": "voxchat-ios"},
	})

	assert.Equal(t, "voxchat-ios", m.ExtraData["client"])
}

// TestChannelTypeConstant tests the messaging channel type value
func TestChannelTypeConstant(t *testing.T) {
	assert.Equal(t, "messaging", ChannelTypeMessaging)
}

// =============================================================================
// INTEGRATION TESTS (require getstream.io credentials)
// =============================================================================

// TestDirectChannelIntegration tests channel creation with real getstream.io
func TestDirectChannelIntegration(t *testing.T) {
	if os.Getenv("STREAM_API_KEY") == "" || os.Getenv("STREAM_API_SECRET") == "" {
		t.Skip("STREAM_API_KEY and STREAM_API_SECRET not set, skipping integration test")
	}

	client, err := NewClient()
	require.NoError(t, err)

	ctx := t.Context()
	require.NoError(t, client.UpsertUser(ctx, "test_vox_a", "Test A"))
	require.NoError(t, client.UpsertUser(ctx, "test_vox_b", "Test B"))

	channelID, err := client.CreateDirectChannel(ctx, "test_vox_a", "test_vox_b")
	require.NoError(t, err)
	assert.Equal(t, "test_vox_a-test_vox_b", channelID)

	// Same pair in either order lands in the same channel
	channelID2, err := client.CreateDirectChannel(ctx, "test_vox_b", "test_vox_a")
	require.NoError(t, err)
	assert.Equal(t, channelID, channelID2)
}
