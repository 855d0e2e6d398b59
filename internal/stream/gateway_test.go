package stream

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxchat/backend/internal/audio"
	"github.com/voxchat/backend/internal/composer"
)

type stubUploader struct {
	uploads []string
	url     string
	err     error
}

func (s *stubUploader) UploadAttachment(ctx context.Context, data []byte, userID, filename, contentType string) (string, error) {
	s.uploads = append(s.uploads, filename)
	if s.err != nil {
		return "", s.err
	}
	return s.url + "/" + filename, nil
}

func TestGatewaySendMessageConvertsCommand(t *testing.T) {
	mock := NewMockChatService()
	gw := NewMessageGateway(mock, nil)

	err := gw.SendMessage(context.Background(), composer.SendRequest{
		ChannelID: "ch1",
		UserID:    "u1",
		Text:      "/giphy cats",
		Command: &composer.ActiveCommand{
			Command: composer.Command{Name: "giphy", ContentBearing: true},
			Args:    "cats",
		},
	})
	require.NoError(t, err)

	calls := mock.GetCallsForMethod("SendMessage")
	require.Len(t, calls, 1)
	msg := calls[0].Args[1].(*OutgoingMessage)
	assert.Equal(t, "giphy", msg.Command)
	assert.Equal(t, "/giphy cats", msg.Text)
	assert.Equal(t, "u1", msg.SenderID)
}

func TestGatewaySendMessageMapsAttachmentKinds(t *testing.T) {
	mock := NewMockChatService()
	gw := NewMessageGateway(mock, nil)

	err := gw.SendMessage(context.Background(), composer.SendRequest{
		ChannelID: "ch1",
		UserID:    "u1",
		Attachments: []composer.PendingAttachment{
			{ID: "a1", Kind: composer.AttachmentImage, LocalURL: "https://cdn/1.jpg"},
			{ID: "a2", Kind: composer.AttachmentFile, LocalURL: "https://cdn/doc.pdf", Title: "doc.pdf"},
			{ID: "a3", Kind: composer.AttachmentVoiceRecording, LocalURL: "https://cdn/v.wav",
				Duration: 3 * time.Second, Waveform: []float64{0.2, 0.8}},
		},
	})
	require.NoError(t, err)

	calls := mock.GetCallsForMethod("SendMessage")
	require.Len(t, calls, 1)
	atts := calls[0].Args[1].(*OutgoingMessage).Attachments
	require.Len(t, atts, 3)

	assert.Equal(t, "image", atts[0].Type)
	assert.Equal(t, "https://cdn/1.jpg", atts[0].ImageURL)
	assert.Empty(t, atts[0].AssetURL)

	assert.Equal(t, "file", atts[1].Type)
	assert.Equal(t, "https://cdn/doc.pdf", atts[1].AssetURL)

	assert.Equal(t, "voiceRecording", atts[2].Type)
	assert.Equal(t, 3.0, atts[2].Duration)
	assert.Equal(t, []float64{0.2, 0.8}, atts[2].Waveform)
}

func TestGatewayUploadsLocalPayloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voice.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFFdata"), 0o644))

	mock := NewMockChatService()
	uploader := &stubUploader{url: "https://cdn.voxchat.io"}
	gw := NewMessageGateway(mock, uploader)

	err := gw.SendMessage(context.Background(), composer.SendRequest{
		ChannelID: "ch1",
		UserID:    "u1",
		Attachments: []composer.PendingAttachment{
			{ID: "a1", Kind: composer.AttachmentVoiceRecording, LocalURL: "file://" + path, MIMEType: "audio/wav"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"voice.wav"}, uploader.uploads)

	calls := mock.GetCallsForMethod("SendMessage")
	require.Len(t, calls, 1)
	atts := calls[0].Args[1].(*OutgoingMessage).Attachments
	require.Len(t, atts, 1)
	assert.Equal(t, "https://cdn.voxchat.io/voice.wav", atts[0].AssetURL)
}

func TestGatewayUploadFailureAborts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voice.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFFdata"), 0o644))

	mock := NewMockChatService()
	uploader := &stubUploader{err: assert.AnError}
	gw := NewMessageGateway(mock, uploader)

	err := gw.SendMessage(context.Background(), composer.SendRequest{
		ChannelID: "ch1",
		UserID:    "u1",
		Attachments: []composer.PendingAttachment{
			{ID: "a1", Kind: composer.AttachmentVoiceRecording, LocalURL: "file://" + path},
		},
	})
	assert.Error(t, err)
	assert.True(t, mock.AssertNotCalled("SendMessage"))
}

type stubVoiceProcessor struct {
	uploads []audio.VoiceNoteUpload
	asset   *audio.VoiceNoteAsset
	err     error
}

func (s *stubVoiceProcessor) Process(ctx context.Context, upload audio.VoiceNoteUpload) (*audio.VoiceNoteAsset, error) {
	s.uploads = append(s.uploads, upload)
	if s.err != nil {
		return nil, s.err
	}
	return s.asset, nil
}

func TestGatewayRoutesVoiceNotesThroughPipeline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voice.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFFdata"), 0o644))

	mock := NewMockChatService()
	uploader := &stubUploader{url: "https://cdn.voxchat.io"}
	voice := &stubVoiceProcessor{asset: &audio.VoiceNoteAsset{
		URL:      "https://cdn.voxchat.io/voice-notes/2026/08/u1/note.m4a",
		MIMEType: "audio/mp4",
	}}

	gw := NewMessageGateway(mock, uploader)
	gw.SetVoiceProcessor(voice)

	err := gw.SendMessage(context.Background(), composer.SendRequest{
		ChannelID: "ch1",
		UserID:    "u1",
		Attachments: []composer.PendingAttachment{
			{ID: "a1", Kind: composer.AttachmentVoiceRecording, LocalURL: "file://" + path,
				MIMEType: "audio/wav", Duration: 2 * time.Second, Waveform: []float64{0.3, 0.7}},
		},
	})
	require.NoError(t, err)

	// The pipeline saw the recording, the plain uploader did not
	require.Len(t, voice.uploads, 1)
	assert.Equal(t, "u1", voice.uploads[0].UserID)
	assert.Equal(t, "ch1", voice.uploads[0].ChannelID)
	assert.Equal(t, []byte("RIFFdata"), voice.uploads[0].Data)
	assert.Equal(t, 2*time.Second, voice.uploads[0].Duration)
	assert.Empty(t, uploader.uploads)

	calls := mock.GetCallsForMethod("SendMessage")
	require.Len(t, calls, 1)
	atts := calls[0].Args[1].(*OutgoingMessage).Attachments
	require.Len(t, atts, 1)
	assert.Equal(t, "voiceRecording", atts[0].Type)
	assert.Equal(t, voice.asset.URL, atts[0].AssetURL)
	assert.Equal(t, "audio/mp4", atts[0].MIMEType)
}

func TestGatewayVoicePipelineFailureAborts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voice.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFFdata"), 0o644))

	mock := NewMockChatService()
	gw := NewMessageGateway(mock, nil)
	gw.SetVoiceProcessor(&stubVoiceProcessor{err: assert.AnError})

	err := gw.SendMessage(context.Background(), composer.SendRequest{
		ChannelID: "ch1",
		UserID:    "u1",
		Attachments: []composer.PendingAttachment{
			{ID: "a1", Kind: composer.AttachmentVoiceRecording, LocalURL: "file://" + path},
		},
	})
	assert.Error(t, err)
	assert.True(t, mock.AssertNotCalled("SendMessage"))
}

func TestGatewayEditMessage(t *testing.T) {
	mock := NewMockChatService()
	gw := NewMessageGateway(mock, nil)

	err := gw.EditMessage(context.Background(), "msg-9", "edited text", nil)
	require.NoError(t, err)

	calls := mock.GetCallsForMethod("UpdateMessage")
	require.Len(t, calls, 1)
	assert.Equal(t, "msg-9", calls[0].Args[0])
	assert.Equal(t, "edited text", calls[0].Args[1].(*OutgoingMessage).Text)
}
