package composer

import (
	"context"
	"errors"
	"time"
)

// Collaborator errors the session latches into user-visible flags.
var (
	// ErrSizeExceeded is returned by a SizeValidator when an asset is too
	// large for the CDN.
	ErrSizeExceeded = errors.New("attachment exceeds maximum upload size")

	// ErrNotSendable is returned by Send when neither text, attachments nor
	// a content-bearing command are present.
	ErrNotSendable = errors.New("message has no sendable content")
)

// ChatSession is the chat backend the composer hands finished messages to.
// Implementations upload attachment payloads themselves; the composer owns
// no wire format.
type ChatSession interface {
	SendMessage(ctx context.Context, req SendRequest) error
	EditMessage(ctx context.Context, messageID, text string, attachments []PendingAttachment) error
}

// SendRequest carries everything needed to post a new message.
type SendRequest struct {
	ChannelID        string
	UserID           string
	Text             string
	Command          *ActiveCommand
	Attachments      []PendingAttachment
	QuotedMessageID  string
	MentionedUserIDs []string
	ExtraData        map[string]interface{}
}

// SizeValidator is the CDN-side byte cap check. Validate returns nil when
// the asset fits, ErrSizeExceeded (possibly wrapped) when it does not.
type SizeValidator interface {
	Validate(ctx context.Context, sizeBytes int64) error
}

// Recorder is the audio-recording collaborator. Start begins capture and
// delivers progress and failure callbacks from the recorder's own goroutine;
// the session is responsible for serializing them. Stop finalizes and
// returns the captured recording; Discard throws away any buffered audio.
type Recorder interface {
	Start(onProgress func(duration time.Duration, averagePower float64), onFailure func(err error)) error
	Stop() (*RecordingResult, error)
	Discard()
}

// DraftStore persists composer drafts so a session can be restored after the
// client reconnects. Implementations live in internal/drafts.
type DraftStore interface {
	Save(ctx context.Context, d Draft) error
	Load(ctx context.Context, userID, channelID string) (*Draft, error)
	Delete(ctx context.Context, userID, channelID string) error
}

// Draft is the durable subset of session state worth restoring.
type Draft struct {
	UserID      string              `json:"user_id"`
	ChannelID   string              `json:"channel_id"`
	Text        string              `json:"text"`
	Attachments []PendingAttachment `json:"attachments,omitempty"`
	UpdatedAt   time.Time           `json:"updated_at"`
}
