package stream

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/voxchat/backend/internal/audio"
	"github.com/voxchat/backend/internal/composer"
	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/telemetry"
	"go.uber.org/zap"
)

// AssetUploader pushes locally staged attachment payloads to the CDN and
// returns their public URL. Implemented by storage.S3Uploader.
type AssetUploader interface {
	UploadAttachment(ctx context.Context, data []byte, userID, filename, contentType string) (string, error)
}

// VoiceNoteProcessor publishes finished voice recordings: encode, upload,
// persist. Implemented by audio.Pipeline.
type VoiceNoteProcessor interface {
	Process(ctx context.Context, upload audio.VoiceNoteUpload) (*audio.VoiceNoteAsset, error)
}

// MessageGateway adapts the chat service to the composer's ChatSession
// collaborator: it uploads locally staged payloads (voice notes recorded
// server-side, picked files) and converts pending attachments to their wire
// shape before handing the message to Stream.
type MessageGateway struct {
	chat    ChatServiceInterface
	uploads AssetUploader
	voice   VoiceNoteProcessor
}

// NewMessageGateway creates a gateway. uploads may be nil, in which case
// attachments are sent with their original URLs untouched.
func NewMessageGateway(chat ChatServiceInterface, uploads AssetUploader) *MessageGateway {
	return &MessageGateway{chat: chat, uploads: uploads}
}

// SetVoiceProcessor routes locally recorded voice notes through the audio
// pipeline instead of the plain attachment uploader.
func (g *MessageGateway) SetVoiceProcessor(voice VoiceNoteProcessor) {
	g.voice = voice
}

var _ composer.ChatSession = (*MessageGateway)(nil)

// SendMessage implements composer.ChatSession.
func (g *MessageGateway) SendMessage(ctx context.Context, req composer.SendRequest) error {
	attachments, err := g.convertAttachments(ctx, req.UserID, req.ChannelID, req.Attachments)
	if err != nil {
		return err
	}

	msg := &OutgoingMessage{
		SenderID:         req.UserID,
		Text:             req.Text,
		Attachments:      attachments,
		QuotedMessageID:  req.QuotedMessageID,
		MentionedUserIDs: req.MentionedUserIDs,
		ExtraData:        req.ExtraData,
	}
	if req.Command != nil {
		msg.Command = req.Command.Command.Name
	}

	sendCtx, span := telemetry.TraceStreamCall(ctx, "send_message", map[string]interface{}{
		"channel_id": req.ChannelID,
	})
	telemetry.SetUserContext(span, req.UserID, req.ChannelID)

	id, err := g.chat.SendMessage(sendCtx, req.ChannelID, msg)
	if err != nil {
		telemetry.RecordServiceError(span, "stream", err)
		span.End()
		return err
	}
	telemetry.RecordServiceSuccess(span, map[string]interface{}{})
	span.End()
	logger.Log.Info("message sent",
		zap.String("message_id", id),
		zap.String("channel_id", req.ChannelID),
		zap.String("user_id", req.UserID),
		zap.Int("attachments", len(attachments)),
	)
	return nil
}

// EditMessage implements composer.ChatSession.
func (g *MessageGateway) EditMessage(ctx context.Context, messageID, text string, atts []composer.PendingAttachment) error {
	attachments, err := g.convertAttachments(ctx, "", "", atts)
	if err != nil {
		return err
	}
	return g.chat.UpdateMessage(ctx, messageID, &OutgoingMessage{
		Text:        text,
		Attachments: attachments,
	})
}

// convertAttachments maps pending attachments to their wire shape, pushing
// local payloads to the CDN first.
func (g *MessageGateway) convertAttachments(ctx context.Context, userID, channelID string, atts []composer.PendingAttachment) ([]Attachment, error) {
	if len(atts) == 0 {
		return nil, nil
	}
	out := make([]Attachment, 0, len(atts))
	for _, att := range atts {
		wire := Attachment{
			Title:    att.Title,
			MIMEType: att.MIMEType,
			Duration: att.Duration.Seconds(),
			Waveform: att.Waveform,
			Extra:    att.Payload,
		}

		url := att.LocalURL
		if strings.HasPrefix(url, "file://") {
			switch {
			case att.Kind == composer.AttachmentVoiceRecording && g.voice != nil:
				asset, err := g.publishVoiceNote(ctx, userID, channelID, att)
				if err != nil {
					return nil, fmt.Errorf("failed to publish voice note %s: %w", att.ID, err)
				}
				url = asset.URL
				wire.MIMEType = asset.MIMEType
			case g.uploads != nil:
				uploaded, err := g.uploadLocal(ctx, userID, att)
				if err != nil {
					return nil, fmt.Errorf("failed to upload attachment %s: %w", att.ID, err)
				}
				url = uploaded
			}
		}

		switch att.Kind {
		case composer.AttachmentImage:
			wire.Type = "image"
			wire.ImageURL = url
		case composer.AttachmentVideo:
			wire.Type = "video"
			wire.AssetURL = url
		case composer.AttachmentVoiceRecording:
			wire.Type = "voiceRecording"
			wire.AssetURL = url
		case composer.AttachmentCustom:
			wire.Type = "custom"
			wire.AssetURL = url
		default:
			wire.Type = "file"
			wire.AssetURL = url
		}
		out = append(out, wire)
	}
	return out, nil
}

func (g *MessageGateway) publishVoiceNote(ctx context.Context, userID, channelID string, att composer.PendingAttachment) (*audio.VoiceNoteAsset, error) {
	path := strings.TrimPrefix(att.LocalURL, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return g.voice.Process(ctx, audio.VoiceNoteUpload{
		UserID:    userID,
		ChannelID: channelID,
		Data:      data,
		MIMEType:  att.MIMEType,
		Duration:  att.Duration,
		Waveform:  att.Waveform,
	})
}

func (g *MessageGateway) uploadLocal(ctx context.Context, userID string, att composer.PendingAttachment) (string, error) {
	path := strings.TrimPrefix(att.LocalURL, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	filename := att.Title
	if filename == "" {
		filename = path[strings.LastIndexByte(path, '/')+1:]
	}
	return g.uploads.UploadAttachment(ctx, data, userID, filename, att.MIMEType)
}
