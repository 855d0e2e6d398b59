// Package audio turns raw recorder output into deliverable voice notes:
// encode with FFmpeg when available, push to the CDN and record the
// placement.
package audio

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/metrics"
	"github.com/voxchat/backend/internal/models"
	"github.com/voxchat/backend/internal/storage"
)

// VoiceNoteUpload is a finished recording handed to the pipeline.
type VoiceNoteUpload struct {
	UserID    string
	ChannelID string
	Data      []byte // raw WAV from the recorder
	MIMEType  string
	Duration  time.Duration
	Waveform  []float64
}

// VoiceNoteAsset describes where the encoded audio landed.
type VoiceNoteAsset struct {
	VoiceNoteID string
	URL         string
	S3Key       string
	MIMEType    string
	SizeBytes   int64
	DurationMS  int64
}

// Uploader is the slice of storage the pipeline needs. Implemented by
// storage.S3Uploader.
type Uploader interface {
	UploadVoiceNote(ctx context.Context, data []byte, userID, filename, contentType string) (*storage.UploadResult, error)
}

// Pipeline handles the voice note publishing sequence: encode, upload,
// persist.
type Pipeline struct {
	encoder *Encoder
	uploads Uploader
	db      *gorm.DB
}

// NewPipeline creates a voice note pipeline. encoder may be nil or
// unavailable, in which case recordings ship as raw WAV. db may be nil, in
// which case no voice note rows are written.
func NewPipeline(encoder *Encoder, uploads Uploader, db *gorm.DB) *Pipeline {
	return &Pipeline{
		encoder: encoder,
		uploads: uploads,
		db:      db,
	}
}

// Process encodes and uploads a finished voice recording, then records it in
// the voice notes table.
func (p *Pipeline) Process(ctx context.Context, upload VoiceNoteUpload) (*VoiceNoteAsset, error) {
	data := upload.Data
	contentType := upload.MIMEType
	if contentType == "" {
		contentType = "audio/wav"
	}
	extension := ".wav"

	if p.encoder != nil && p.encoder.Available() {
		encoded, err := p.encoder.EncodeVoiceWAV(ctx, upload.Data)
		if err != nil {
			// Raw WAV still plays everywhere; ship it rather than fail the send
			logger.Log.Warn("Voice note encode failed, uploading raw WAV",
				zap.String("user_id", upload.UserID),
				zap.Error(err),
			)
		} else {
			data = encoded
			contentType = "audio/mp4"
			extension = ".m4a"
		}
	}

	duration := upload.Duration
	if duration <= 0 && p.encoder != nil && p.encoder.Available() {
		if probed, err := p.encoder.ProbeDuration(ctx, data); err == nil {
			duration = probed
		}
	}

	filename := uuid.New().String() + extension
	result, err := p.uploads.UploadVoiceNote(ctx, data, upload.UserID, filename, contentType)
	if err != nil {
		metrics.App().RecordingUploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to upload voice note: %w", err)
	}
	metrics.App().RecordingUploadsTotal.WithLabelValues("success").Inc()

	asset := &VoiceNoteAsset{
		URL:        result.URL,
		S3Key:      result.Key,
		MIMEType:   contentType,
		SizeBytes:  int64(len(data)),
		DurationMS: duration.Milliseconds(),
	}

	if p.db != nil {
		note := &models.VoiceNote{
			ID:         uuid.New().String(),
			UserID:     upload.UserID,
			ChannelID:  upload.ChannelID,
			URL:        asset.URL,
			S3Key:      asset.S3Key,
			MIMEType:   asset.MIMEType,
			SizeBytes:  asset.SizeBytes,
			DurationMS: asset.DurationMS,
			Waveform:   models.Float64Array(upload.Waveform),
		}
		if err := p.db.WithContext(ctx).Create(note).Error; err != nil {
			// Bookkeeping only; the message must still go out
			logger.Log.Warn("Failed to record voice note",
				zap.String("user_id", upload.UserID),
				zap.Error(err),
			)
		} else {
			asset.VoiceNoteID = note.ID
		}
	}

	logger.Log.Info("🎙️ Voice note processed",
		zap.String("user_id", upload.UserID),
		zap.String("channel_id", upload.ChannelID),
		zap.String("mime_type", asset.MIMEType),
		zap.Int64("size_bytes", asset.SizeBytes),
		zap.Int64("duration_ms", asset.DurationMS),
	)
	return asset, nil
}
