package composer

import (
	"time"
)

// MaxAttachments is the combined cap across images, files and custom
// attachments in a single composer session. Voice recordings are gated
// separately (one pending recording at a time).
const MaxAttachments = 10

// AttachmentKind discriminates the pending attachment union.
type AttachmentKind string

const (
	AttachmentImage          AttachmentKind = "image"
	AttachmentVideo          AttachmentKind = "video"
	AttachmentFile           AttachmentKind = "file"
	AttachmentCustom         AttachmentKind = "custom"
	AttachmentVoiceRecording AttachmentKind = "voiceRecording"
)

// PendingAttachment is a single attachment staged in the composer but not
// yet sent. ID is stable for the life of the session and is what selection
// and removal key on.
type PendingAttachment struct {
	ID        string                 `json:"id"`
	Kind      AttachmentKind         `json:"kind"`
	LocalURL  string                 `json:"local_url,omitempty"`
	Title     string                 `json:"title,omitempty"`
	MIMEType  string                 `json:"mime_type,omitempty"`
	SizeBytes int64                  `json:"size_bytes,omitempty"`
	Duration  time.Duration          `json:"duration,omitempty"`
	Waveform  []float64              `json:"waveform,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// AttachmentCollection holds pending attachments in insertion order so the
// renderer can display them the way the user added them. Membership checks
// go through the id index.
type AttachmentCollection struct {
	items []PendingAttachment
	index map[string]int
}

// NewAttachmentCollection creates an empty collection.
func NewAttachmentCollection() *AttachmentCollection {
	return &AttachmentCollection{
		items: make([]PendingAttachment, 0, MaxAttachments),
		index: make(map[string]int, MaxAttachments),
	}
}

// Len returns the number of staged attachments.
func (c *AttachmentCollection) Len() int {
	return len(c.items)
}

// Items returns the attachments in insertion order. The returned slice is a
// copy; mutating it does not affect the collection.
func (c *AttachmentCollection) Items() []PendingAttachment {
	out := make([]PendingAttachment, len(c.items))
	copy(out, c.items)
	return out
}

// Contains reports whether an attachment with the given id is staged.
func (c *AttachmentCollection) Contains(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Get returns the attachment with the given id, if present.
func (c *AttachmentCollection) Get(id string) (PendingAttachment, bool) {
	i, ok := c.index[id]
	if !ok {
		return PendingAttachment{}, false
	}
	return c.items[i], true
}

// CountExcludingVoice returns the number of staged attachments that count
// against MaxAttachments. Voice recordings are gated separately (one pending
// recording at a time) and do not consume the cap.
func (c *AttachmentCollection) CountExcludingVoice() int {
	n := 0
	for _, att := range c.items {
		if att.Kind != AttachmentVoiceRecording {
			n++
		}
	}
	return n
}

// Append adds an attachment at the end. It returns false without modifying
// the collection when the id is already present. Capacity is enforced by the
// session, which knows which kinds count against the cap.
func (c *AttachmentCollection) Append(att PendingAttachment) bool {
	if _, ok := c.index[att.ID]; ok {
		return false
	}
	c.index[att.ID] = len(c.items)
	c.items = append(c.items, att)
	return true
}

// Remove deletes the attachment with the given id, preserving the order of
// the remaining items. Removing an absent id is a no-op.
func (c *AttachmentCollection) Remove(id string) bool {
	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.index, id)
	for j := i; j < len(c.items); j++ {
		c.index[c.items[j].ID] = j
	}
	return true
}

// Clear drops all staged attachments.
func (c *AttachmentCollection) Clear() {
	c.items = c.items[:0]
	c.index = make(map[string]int, MaxAttachments)
}
