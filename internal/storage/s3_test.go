package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voxchat/backend/internal/composer"
)

// =============================================================================
// CONTENT TYPE TESTS
// =============================================================================

func TestGetContentType(t *testing.T) {
	tests := []struct {
		extension string
		expected  string
	}{
		{".mp3", "audio/mpeg"},
		{".MP3", "audio/mpeg"},
		{".wav", "audio/wav"},
		{".WAV", "audio/wav"},
		{".ogg", "audio/ogg"},
		{".m4a", "audio/mp4"},
		{".jpg", "image/jpeg"},
		{".JPEG", "image/jpeg"},
		{".png", "image/png"},
		{".gif", "image/gif"},
		{".webp", "image/webp"},
		{".mp4", "video/mp4"},
		{".mov", "video/quicktime"},
		{".pdf", "application/pdf"},
		{".unknown", "application/octet-stream"},
		{"", "application/octet-stream"},
		{".flac", "application/octet-stream"}, // Not explicitly mapped
	}

	for _, tt := range tests {
		t.Run(tt.extension, func(t *testing.T) {
			result := getContentType(tt.extension)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// =============================================================================
// UPLOAD RESULT TESTS
// =============================================================================

func TestUploadResultStruct(t *testing.T) {
	result := UploadResult{
		Key:    "voice-notes/2026/01/user123/abc123.wav",
		URL:    "https://cdn.example.com/voice-notes/2026/01/user123/abc123.wav",
		Bucket: "my-bucket",
		Region: "us-east-1",
		Size:   1024000,
	}

	assert.Equal(t, "voice-notes/2026/01/user123/abc123.wav", result.Key)
	assert.Equal(t, "https://cdn.example.com/voice-notes/2026/01/user123/abc123.wav", result.URL)
	assert.Equal(t, "my-bucket", result.Bucket)
	assert.Equal(t, "us-east-1", result.Region)
	assert.Equal(t, int64(1024000), result.Size)
}

// =============================================================================
// S3 UPLOADER STRUCT TESTS
// =============================================================================

func TestS3UploaderStruct(t *testing.T) {
	// Test the struct fields are accessible
	uploader := &S3Uploader{
		bucket:  "test-bucket",
		region:  "us-west-2",
		baseURL: "https://cdn.test.com",
	}

	assert.Equal(t, "test-bucket", uploader.bucket)
	assert.Equal(t, "us-west-2", uploader.region)
	assert.Equal(t, "https://cdn.test.com", uploader.baseURL)
}

// =============================================================================
// UPLOAD LIMIT TESTS
// =============================================================================

func TestUploadLimitAccepts(t *testing.T) {
	limit := NewUploadLimit(1024)

	assert.NoError(t, limit.Validate(context.Background(), 512))
	assert.NoError(t, limit.Validate(context.Background(), 1024)) // at the cap, not over
	assert.NoError(t, limit.Validate(context.Background(), 0))
}

func TestUploadLimitRejectsOversized(t *testing.T) {
	limit := NewUploadLimit(1024)

	err := limit.Validate(context.Background(), 1025)
	assert.ErrorIs(t, err, composer.ErrSizeExceeded)
}

func TestUploadLimitDefaultCap(t *testing.T) {
	limit := NewUploadLimit(0)
	assert.Equal(t, DefaultMaxAttachmentBytes, limit.MaxBytes)

	limit = NewUploadLimit(-5)
	assert.Equal(t, DefaultMaxAttachmentBytes, limit.MaxBytes)
}
