package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voxchat/backend/internal/composer"
	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/middleware"
	"github.com/voxchat/backend/internal/telemetry"
	"github.com/voxchat/backend/internal/util"
)

// OpenSession creates or resumes the composer session for the authenticated
// user in a channel. A plain open restores any saved draft; passing
// quoted_message_id opens a reply, passing message_id (+ text/attachments)
// opens an edit seeded with the existing message content.
func (h *Handlers) OpenSession(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	channelID := c.Param("channelId")
	if channelID == "" {
		util.RespondBadRequest(c, "channel_id", "channel id is required")
		return
	}

	var req struct {
		QuotedMessageID string                       `json:"quoted_message_id"`
		MessageID       string                       `json:"message_id"`
		Text            string                       `json:"text"`
		Attachments     []composer.PendingAttachment `json:"attachments"`
	}
	// Body is optional for a plain open
	_ = c.ShouldBindJSON(&req)

	if req.QuotedMessageID != "" && req.MessageID != "" {
		util.RespondBadRequest(c, "message_id", "cannot open a reply and an edit at once")
		return
	}

	_, existed := h.composer.Get(userID, channelID)

	var (
		session *composer.Session
		mode    string
	)
	switch {
	case req.MessageID != "":
		session = h.composer.OpenForEdit(userID, channelID, req.MessageID, req.Text, req.Attachments)
		mode = "edit"
		existed = false // edits always replace the live session
	case req.QuotedMessageID != "":
		session = h.composer.OpenWithQuote(c.Request.Context(), userID, channelID, req.QuotedMessageID)
		mode = "reply"
	default:
		session = h.composer.Open(c.Request.Context(), userID, channelID)
		mode = "new"
	}

	// Push state changes to the user's other devices. Subscribing only on
	// creation keeps one observer per session.
	if !existed && h.wsHandler != nil {
		uid := userID
		session.Subscribe(func(snap composer.Snapshot) {
			h.wsHandler.NotifyComposerSnapshot(uid, snap)
		})
	}

	if !existed {
		middleware.RecordSessionOpened(mode)
		middleware.SetActiveSessions(h.composer.Len())
		_, span := telemetry.GetBusinessEvents().TraceOpenSession(c.Request.Context(), telemetry.ComposerEventAttrs{
			SessionID: userID + "/" + channelID,
			ChannelID: channelID,
		})
		span.End()
	}

	logger.Log.Info("💬 Composer session opened",
		zap.String("user_id", userID),
		zap.String("channel_id", channelID),
		zap.String("mode", mode),
	)

	c.JSON(http.StatusOK, gin.H{
		"session":  session.Snapshot(),
		"resumed":  existed,
		"mode":     mode,
		"max_size": composer.MaxAttachments,
	})
}

// GetComposer returns the current snapshot of a live session
func (h *Handlers) GetComposer(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session.Snapshot()})
}

// CloseSession drops the live session. With ?discard=true the pending
// content and saved draft are thrown away; otherwise the draft survives for
// the next open.
func (h *Handlers) CloseSession(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	channelID := c.Param("channelId")

	discard := c.Query("discard") == "true"
	h.composer.Close(c.Request.Context(), userID, channelID, discard)
	middleware.SetActiveSessions(h.composer.Len())

	logger.Log.Info("💬 Composer session closed",
		zap.String("user_id", userID),
		zap.String("channel_id", channelID),
		zap.Bool("discard", discard),
	)

	c.JSON(http.StatusOK, gin.H{"closed": true, "discarded": discard})
}

// SetText replaces the composer text. Mentions and the active slash command
// are re-derived from the new text; the draft is persisted as a side effect.
func (h *Handlers) SetText(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "text", err.Error())
		return
	}

	session.SetText(c.Request.Context(), req.Text)
	middleware.RecordDraftSaved()
	if h.wsHandler != nil {
		h.wsHandler.NotifyDraftSaved(session.Snapshot().UserID, c.Param("channelId"))
	}

	c.JSON(http.StatusOK, gin.H{"session": session.Snapshot()})
}

// UpdatePicker expands or collapses the attachment-source picker
func (h *Handlers) UpdatePicker(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req struct {
		Expanded bool   `json:"expanded"`
		Mode     string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "picker", err.Error())
		return
	}

	state := composer.CollapsedPicker()
	if req.Expanded {
		mode := composer.PickerMode(req.Mode)
		switch mode {
		case composer.PickerModeMedia, composer.PickerModeFiles, composer.PickerModeCamera,
			composer.PickerModeInstantCommands, composer.PickerModeCustom:
			state = composer.ExpandedPicker(mode)
		default:
			util.RespondBadRequest(c, "mode", "unknown picker mode")
			return
		}
	}

	session.ChangePicker(state)
	c.JSON(http.StatusOK, gin.H{"session": session.Snapshot()})
}

// DismissAlerts clears the latched rejection and failure flags
func (h *Handlers) DismissAlerts(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.DismissAlerts()
	c.JSON(http.StatusOK, gin.H{"session": session.Snapshot()})
}

// AddAttachment stages an attachment the client already holds a URL for
// (picked media, a custom payload). Binary uploads go through
// UploadAttachment instead.
func (h *Handlers) AddAttachment(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var att composer.PendingAttachment
	if err := c.ShouldBindJSON(&att); err != nil {
		util.RespondBadRequest(c, "attachment", err.Error())
		return
	}
	if att.ID == "" || att.Kind == "" {
		util.RespondBadRequest(c, "attachment", "id and kind are required")
		return
	}

	if err := session.AddAttachment(c.Request.Context(), att); err != nil {
		h.respondAttachmentRejected(c, session, err)
		return
	}

	middleware.RecordAttachmentAdded(string(att.Kind))
	_, span := telemetry.GetBusinessEvents().TraceAttachment(c.Request.Context(), "add", string(att.Kind), c.Param("channelId"))
	span.End()

	c.JSON(http.StatusOK, gin.H{"session": session.Snapshot()})
}

// RemoveAttachment unstages an attachment by id. Removing an id that is not
// staged is a no-op, matching the composer semantics.
func (h *Handlers) RemoveAttachment(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	session.RemoveAttachment(c.Request.Context(), c.Param("attachmentId"))
	c.JSON(http.StatusOK, gin.H{"session": session.Snapshot()})
}

// ToggleAttachment stages the attachment if absent and unstages it if
// present. Used by gallery-style pickers where tapping selects and deselects.
func (h *Handlers) ToggleAttachment(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var att composer.PendingAttachment
	if err := c.ShouldBindJSON(&att); err != nil {
		util.RespondBadRequest(c, "attachment", err.Error())
		return
	}
	if att.ID == "" || att.Kind == "" {
		util.RespondBadRequest(c, "attachment", "id and kind are required")
		return
	}

	if err := session.ToggleAttachment(c.Request.Context(), att); err != nil {
		h.respondAttachmentRejected(c, session, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":  session.Snapshot(),
		"selected": session.IsSelected(att.ID),
	})
}

// SendMessage posts the composed message to the channel. On success the
// session resets and the draft is deleted; on failure the content stays for
// retry and the failure flag latches until dismissed.
func (h *Handlers) SendMessage(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	snap := session.Snapshot()
	kind := "text"
	if len(snap.Attachments) > 0 {
		kind = "attachments"
	}
	if snap.Command != nil {
		kind = "command"
	}

	start := time.Now()
	err := session.Send(c.Request.Context())
	middleware.RecordMessageSent(kind, time.Since(start), err)

	if err != nil {
		if errors.Is(err, composer.ErrNotSendable) {
			util.RespondBadRequest(c, "message", "message has no sendable content")
			return
		}
		logger.Log.Warn("💬 Send failed",
			zap.String("user_id", snap.UserID),
			zap.String("channel_id", snap.ChannelID),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "send_failed",
			"message": "message could not be delivered; content kept for retry",
			"session": session.Snapshot(),
		})
		return
	}

	_, span := telemetry.GetBusinessEvents().TraceSendMessage(c.Request.Context(), telemetry.ComposerEventAttrs{
		SessionID:       snap.UserID + "/" + snap.ChannelID,
		ChannelID:       snap.ChannelID,
		AttachmentCount: int64(len(snap.Attachments)),
		TextLength:      int64(len(snap.Text)),
	})
	span.End()

	c.JSON(http.StatusOK, gin.H{"sent": true, "session": session.Snapshot()})
}

// SetInstantCommand binds an instant command (picked from the overlay) to the
// session; DELETE clears it.
func (h *Handlers) SetInstantCommand(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "name", err.Error())
		return
	}

	cmd, found := h.commands.Lookup(strings.ToLower(req.Name))
	if !found {
		util.RespondNotFound(c, "command")
		return
	}
	if !cmd.Instant {
		util.RespondBadRequest(c, "name", "command is not an instant command")
		return
	}

	session.SetInstantCommand(cmd)
	c.JSON(http.StatusOK, gin.H{"session": session.Snapshot()})
}

// ClearInstantCommand unbinds the instant command
func (h *Handlers) ClearInstantCommand(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.ClearInstantCommand()
	c.JSON(http.StatusOK, gin.H{"session": session.Snapshot()})
}

// session resolves the live session for the request, responding 404 when the
// user has not opened the composer in this channel.
func (h *Handlers) session(c *gin.Context) (*composer.Session, bool) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return nil, false
	}
	channelID := c.Param("channelId")
	if channelID == "" {
		util.RespondBadRequest(c, "channel_id", "channel id is required")
		return nil, false
	}

	session, found := h.composer.Get(userID, channelID)
	if !found {
		util.RespondNotFound(c, "composer session")
		return nil, false
	}
	return session, true
}

// respondAttachmentRejected maps composer attachment errors to a 422 carrying
// the refreshed snapshot (the rejected flag is latched in it).
func (h *Handlers) respondAttachmentRejected(c *gin.Context, session *composer.Session, err error) {
	reason := "cap"
	if errors.Is(err, composer.ErrSizeExceeded) {
		reason = "size"
	}
	middleware.RecordAttachmentRejected(reason)

	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error":   "attachment_rejected",
		"reason":  reason,
		"message": err.Error(),
		"session": session.Snapshot(),
	})
}
