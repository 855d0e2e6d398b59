package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/voxchat/backend/internal/telemetry"
)

// S3Uploader handles attachment and voice note uploads to AWS S3
type S3Uploader struct {
	client  *s3.Client
	bucket  string
	region  string
	baseURL string
}

// UploadResult contains the result of an S3 upload
type UploadResult struct {
	Key    string `json:"key"`
	URL    string `json:"url"`
	Bucket string `json:"bucket"`
	Region string `json:"region"`
	Size   int64  `json:"size"`
}

// NewS3Uploader creates a new S3 uploader
func NewS3Uploader(region, bucket, baseURL string) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)

	return &S3Uploader{
		client:  client,
		bucket:  bucket,
		region:  region,
		baseURL: baseURL,
	}, nil
}

// UploadAttachment uploads an attachment payload to S3 and returns its public
// URL. Used by the message gateway for locally staged picker files.
func (u *S3Uploader) UploadAttachment(ctx context.Context, data []byte, userID, filename, contentType string) (string, error) {
	result, err := u.upload(ctx, data, userID, filename, contentType, "attachment")
	if err != nil {
		return "", err
	}
	return result.URL, nil
}

// UploadVoiceNote uploads an encoded voice recording to S3
func (u *S3Uploader) UploadVoiceNote(ctx context.Context, data []byte, userID, filename, contentType string) (*UploadResult, error) {
	if filename == "" {
		filename = uuid.New().String() + ".wav"
	}
	if contentType == "" {
		contentType = "audio/wav"
	}
	return u.upload(ctx, data, userID, filename, contentType, "voice-note")
}

// upload writes data under an organized key: {fileType}s/{year}/{month}/{userID}/{fileID}{ext}
func (u *S3Uploader) upload(ctx context.Context, data []byte, userID, originalFilename, contentType, fileType string) (*UploadResult, error) {
	fileID := uuid.New().String()
	extension := filepath.Ext(originalFilename)

	if contentType == "" {
		contentType = getContentType(extension)
	}

	now := time.Now()
	key := fmt.Sprintf("%ss/%d/%02d/%s/%s%s",
		fileType, now.Year(), now.Month(), userID, fileID, extension)

	putObjectInput := &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),

		// Cache for 1 hour (uploaded payloads don't change)
		CacheControl: aws.String("max-age=3600"),

		// Set metadata
		Metadata: map[string]string{
			"user-id":           userID,
			"original-filename": originalFilename,
			"upload-timestamp":  now.Format(time.RFC3339),
			"file-type":         fileType,
		},

		// Note: Removed ACL - bucket policy should handle public access
	}

	putCtx, span := telemetry.TraceS3Call(ctx, "put_object", map[string]interface{}{
		"bucket":       u.bucket,
		"key":          key,
		"content_type": contentType,
		"size_bytes":   int64(len(data)),
	})
	_, err := u.client.PutObject(putCtx, putObjectInput)
	if err != nil {
		telemetry.RecordServiceError(span, "s3", err)
		span.End()
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}
	telemetry.RecordServiceSuccess(span, map[string]interface{}{})
	span.End()

	// Generate public URL
	publicURL := fmt.Sprintf("%s/%s", strings.TrimSuffix(u.baseURL, "/"), key)

	return &UploadResult{
		Key:    key,
		URL:    publicURL,
		Bucket: u.bucket,
		Region: u.region,
		Size:   int64(len(data)),
	}, nil
}

// DeleteFile deletes a file from S3
func (u *S3Uploader) DeleteFile(ctx context.Context, key string) error {
	delCtx, span := telemetry.TraceS3Call(ctx, "delete_object", map[string]interface{}{
		"bucket": u.bucket,
		"key":    key,
	})
	defer span.End()

	_, err := u.client.DeleteObject(delCtx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		telemetry.RecordServiceError(span, "s3", err)
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	telemetry.RecordServiceSuccess(span, map[string]interface{}{})
	return nil
}

// CheckBucketAccess verifies that we can access the S3 bucket
func (u *S3Uploader) CheckBucketAccess(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", u.bucket, err)
	}

	return nil
}

// getContentType returns the appropriate MIME type for file extensions
func getContentType(extension string) string {
	switch strings.ToLower(extension) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".m4a":
		return "audio/mp4"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
