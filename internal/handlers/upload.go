package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voxchat/backend/internal/composer"
	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/middleware"
	"github.com/voxchat/backend/internal/telemetry"
	"github.com/voxchat/backend/internal/util"
)

// UploadAttachment receives an attachment payload as multipart form data,
// pushes it to the CDN and stages the resulting URL in the session. The cap
// and size checks run before the upload so rejected attachments never hit
// the CDN.
func (h *Handlers) UploadAttachment(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	userID, _ := util.GetUserIDFromContext(c)

	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "uploads_unavailable",
			"message": "attachment storage is not configured",
		})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		util.RespondBadRequest(c, "file", "file field is required")
		return
	}
	if err := util.ValidateFilename(fileHeader.Filename); err != nil {
		util.RespondBadRequest(c, "file", err.Error())
		return
	}

	kind := attachmentKindFor(c.PostForm("kind"), fileHeader.Filename)

	// Stage a placeholder first so the cap and size rejections happen before
	// any bytes leave the box.
	att := composer.PendingAttachment{
		ID:        uuid.New().String(),
		Kind:      kind,
		Title:     fileHeader.Filename,
		MIMEType:  fileHeader.Header.Get("Content-Type"),
		SizeBytes: fileHeader.Size,
	}
	if err := session.AddAttachment(c.Request.Context(), att); err != nil {
		h.respondAttachmentRejected(c, session, err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		session.RemoveAttachment(c.Request.Context(), att.ID)
		util.RespondInternalError(c, "failed to read uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		session.RemoveAttachment(c.Request.Context(), att.ID)
		util.RespondInternalError(c, "failed to read uploaded file")
		return
	}

	url, err := h.uploader.UploadAttachment(c.Request.Context(), data, userID, fileHeader.Filename, att.MIMEType)
	if err != nil {
		session.RemoveAttachment(c.Request.Context(), att.ID)
		logger.Log.Error("📎 Attachment upload failed",
			zap.String("user_id", userID),
			zap.String("filename", fileHeader.Filename),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "upload_failed",
			"message": "attachment could not be stored",
		})
		return
	}

	// Swap the placeholder for the uploaded copy, keeping the same id.
	session.RemoveAttachment(c.Request.Context(), att.ID)
	att.LocalURL = url
	if err := session.AddAttachment(c.Request.Context(), att); err != nil {
		h.respondAttachmentRejected(c, session, err)
		return
	}

	middleware.RecordAttachmentAdded(string(kind))
	_, span := telemetry.GetBusinessEvents().TraceAttachment(c.Request.Context(), "upload", string(kind), c.Param("channelId"))
	span.End()

	logger.Log.Info("📎 Attachment uploaded",
		zap.String("user_id", userID),
		zap.String("attachment_id", att.ID),
		zap.String("kind", string(kind)),
		zap.Int64("size_bytes", fileHeader.Size),
	)

	c.JSON(http.StatusOK, gin.H{
		"session":    session.Snapshot(),
		"attachment": att,
		"url":        url,
	})
}

// attachmentKindFor picks the attachment kind from the client hint, falling
// back to the filename extension.
func attachmentKindFor(hint, filename string) composer.AttachmentKind {
	switch composer.AttachmentKind(hint) {
	case composer.AttachmentImage, composer.AttachmentVideo, composer.AttachmentFile, composer.AttachmentCustom:
		return composer.AttachmentKind(hint)
	}

	if util.IsValidImageFile(filename) {
		return composer.AttachmentImage
	}
	if util.IsValidVideoFile(filename) {
		return composer.AttachmentVideo
	}
	return composer.AttachmentFile
}
