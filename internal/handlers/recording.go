package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voxchat/backend/internal/composer"
	"github.com/voxchat/backend/internal/middleware"
	"github.com/voxchat/backend/internal/telemetry"
	"github.com/voxchat/backend/internal/util"
)

// StartRecording begins a hold-to-record voice capture. Audio samples arrive
// over the WebSocket as audio_chunk messages; this only drives the state
// machine. Starting while a recording is active is ignored.
func (h *Handlers) StartRecording(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.StartRecording(); err != nil {
		middleware.RecordRecording("failed_to_start")
		c.JSON(http.StatusConflict, gin.H{
			"error":   "recording_unavailable",
			"message": err.Error(),
			"session": session.Snapshot(),
		})
		return
	}

	middleware.RecordRecording("started")
	_, span := telemetry.GetBusinessEvents().TraceRecording(c.Request.Context(), "start", telemetry.RecordingEventAttrs{
		SessionID: c.Param("channelId"),
	})
	span.End()

	c.JSON(http.StatusOK, gin.H{"session": session.Snapshot()})
}

// UpdateRecordingDrag reports the hold gesture's current translation.
// Dragging far enough left cancels the recording; far enough up locks it
// hands-free. Updates outside the active phase are ignored.
func (h *Handlers) UpdateRecordingDrag(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "offset", err.Error())
		return
	}

	session.UpdateRecordingDrag(composer.DragOffset{X: req.X, Y: req.Y})
	c.JSON(http.StatusOK, gin.H{"session": session.Snapshot()})
}

// PreviewRecording stops capture and keeps the recording for review before
// sending. Only meaningful from the active or locked phases.
func (h *Handlers) PreviewRecording(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	session.PreviewRecording()
	c.JSON(http.StatusOK, gin.H{"session": session.Snapshot()})
}

// ConfirmRecording finalizes the stopped recording and stages it as a voice
// attachment. Voice recordings do not count against the attachment cap.
func (h *Handlers) ConfirmRecording(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	before := session.Snapshot()
	session.ConfirmRecording(c.Request.Context())
	after := session.Snapshot()

	confirmed := len(after.Attachments) > len(before.Attachments)
	if confirmed {
		middleware.RecordRecording("confirmed")
		middleware.RecordRecordingDuration(before.RecordingInfo.Duration)
		middleware.RecordAttachmentAdded(string(composer.AttachmentVoiceRecording))
	}

	_, span := telemetry.GetBusinessEvents().TraceRecording(c.Request.Context(), "confirm", telemetry.RecordingEventAttrs{
		SessionID:  c.Param("channelId"),
		DurationMS: before.RecordingInfo.Duration.Milliseconds(),
		Outcome:    outcomeString(confirmed),
	})
	span.End()

	c.JSON(http.StatusOK, gin.H{"session": after, "confirmed": confirmed})
}

// DiscardRecording throws away the in-flight or previewed recording from any
// phase and returns the composer to its initial recording state.
func (h *Handlers) DiscardRecording(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	session.DiscardRecording()
	middleware.RecordRecording("discarded")

	c.JSON(http.StatusOK, gin.H{"session": session.Snapshot()})
}

func outcomeString(confirmed bool) string {
	if confirmed {
		return "confirmed"
	}
	return "rejected"
}
