package storage

import (
	"context"
)

// AttachmentUploader defines the interface for pushing attachment payloads to
// the CDN. This interface allows for easy mocking in tests.
type AttachmentUploader interface {
	UploadAttachment(ctx context.Context, data []byte, userID, filename, contentType string) (string, error)
	UploadVoiceNote(ctx context.Context, data []byte, userID, filename, contentType string) (*UploadResult, error)
}

// Ensure S3Uploader implements AttachmentUploader
var _ AttachmentUploader = (*S3Uploader)(nil)
