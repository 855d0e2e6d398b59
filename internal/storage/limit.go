package storage

import (
	"context"

	"github.com/voxchat/backend/internal/composer"
)

// DefaultMaxAttachmentBytes is the CDN upload cap applied when no explicit
// limit is configured (100 MB, matching the Stream CDN default).
const DefaultMaxAttachmentBytes int64 = 100 * 1024 * 1024

// UploadLimit rejects attachment payloads larger than the CDN accepts, so
// oversized picks fail before an upload is ever attempted.
type UploadLimit struct {
	MaxBytes int64
}

var _ composer.SizeValidator = (*UploadLimit)(nil)

// NewUploadLimit creates a limit with the given cap; maxBytes <= 0 falls back
// to DefaultMaxAttachmentBytes.
func NewUploadLimit(maxBytes int64) *UploadLimit {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAttachmentBytes
	}
	return &UploadLimit{MaxBytes: maxBytes}
}

// Validate implements composer.SizeValidator.
func (l *UploadLimit) Validate(ctx context.Context, sizeBytes int64) error {
	if sizeBytes > l.MaxBytes {
		return composer.ErrSizeExceeded
	}
	return nil
}
