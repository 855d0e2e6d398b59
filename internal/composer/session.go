// Package composer implements the message composer session: pending text and
// attachments, the expandable attachment picker, the hold-to-record voice
// state machine, and slash-command and @mention derivation. It owns no
// networking or persistence; the chat backend, CDN size check, audio
// recorder and draft store are supplied as collaborators.
package composer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/voxchat/backend/internal/logger"
	"go.uber.org/zap"
)

// ErrAttachmentLimit is returned when an add would push the session past
// MaxAttachments.
var ErrAttachmentLimit = errors.New("attachment limit reached")

// Observer receives a state snapshot after every session mutation. Observers
// are invoked synchronously by the mutating call, in subscription order.
type Observer func(Snapshot)

// SessionConfig wires a new composer session to its collaborators. Chat is
// required to send; the rest are optional and the corresponding features
// degrade to no-ops when absent.
type SessionConfig struct {
	UserID          string
	ChannelID       string
	QuotedMessageID string
	EditedMessageID string

	Chat      ChatSession
	Validator SizeValidator
	Recorder  Recorder
	Commands  CommandSet
	Drafts    DraftStore
}

// Session is one open message composer. It is created when the user starts
// authoring (new message or edit), mutated by user intents and collaborator
// callbacks, and discarded on send, reset or edit-cancel.
//
// All mutations are serialized through the session mutex; collaborator
// callbacks arriving from background goroutines go through the same entry
// points, so derived state never races. A generation counter fences late
// recorder callbacks so a cancelled recording cannot be resurrected.
type Session struct {
	mu sync.Mutex

	userID          string
	channelID       string
	quotedMessageID string
	editedMessageID string

	text          string
	attachments   *AttachmentCollection
	picker        PickerState
	recording     RecordingState
	recordingInfo RecordingInfo
	pendingRec    *RecordingResult
	generation    uint64

	instantCommand *ActiveCommand
	activeCommand  *ActiveCommand
	resolvedUsers  map[string]MentionedUser
	mentions       map[string]MentionedUser

	// Latched error flags; cleared on the next successful action or an
	// explicit DismissAlerts.
	attachmentRejected bool
	sendFailed         bool
	recordingFailed    bool

	chat      ChatSession
	validator SizeValidator
	recorder  Recorder
	commands  CommandSet
	drafts    DraftStore

	observers []Observer
}

// NewSession creates a composer session for one user in one channel.
func NewSession(cfg SessionConfig) *Session {
	return &Session{
		userID:          cfg.UserID,
		channelID:       cfg.ChannelID,
		quotedMessageID: cfg.QuotedMessageID,
		editedMessageID: cfg.EditedMessageID,
		attachments:     NewAttachmentCollection(),
		picker:          CollapsedPicker(),
		recording:       InitialRecordingState(),
		resolvedUsers:   make(map[string]MentionedUser),
		mentions:        make(map[string]MentionedUser),
		chat:            cfg.Chat,
		validator:       cfg.Validator,
		recorder:        cfg.Recorder,
		commands:        cfg.Commands,
		drafts:          cfg.Drafts,
	}
}

// Subscribe registers an observer for state snapshots. The observer is
// immediately called with the current state.
func (s *Session) Subscribe(fn Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	fn(snap)
}

// Recorder exposes the session's recorder so transports can feed captured
// audio into it. Nil when the session was built without one.
func (s *Session) Recorder() Recorder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorder
}

// SetText replaces the composer text and re-derives the active command and
// mentions. Clearing the text clears mentions and any non-instant command.
func (s *Session) SetText(ctx context.Context, text string) {
	s.mu.Lock()
	s.text = text
	s.deriveLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.saveDraft(ctx)
	s.notify(snap)
}

// Text returns the current composer text.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// AddAttachment stages an attachment. Two independent rejection paths latch
// the same user-visible flag: the combined count cap, and the CDN byte-size
// check for image and video assets. A rejected attachment is not added.
func (s *Session) AddAttachment(ctx context.Context, att PendingAttachment) error {
	if att.ID == "" {
		att.ID = uuid.New().String()
	}

	// Size validation happens before taking the lock so a slow CDN check
	// does not stall unrelated intents. The count cap is re-checked under
	// the lock afterwards.
	if s.needsSizeCheck(att) {
		if err := s.validator.Validate(ctx, att.SizeBytes); err != nil {
			s.mu.Lock()
			s.attachmentRejected = true
			snap := s.snapshotLocked()
			s.mu.Unlock()
			s.notify(snap)
			return err
		}
	}

	s.mu.Lock()
	if att.Kind != AttachmentVoiceRecording && s.attachments.CountExcludingVoice() >= MaxAttachments {
		s.attachmentRejected = true
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		return ErrAttachmentLimit
	}
	if s.attachments.Append(att) {
		s.attachmentRejected = false
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.saveDraft(ctx)
	s.notify(snap)
	return nil
}

// RemoveAttachment deletes a staged attachment by id; absent ids are a
// no-op.
func (s *Session) RemoveAttachment(ctx context.Context, id string) {
	s.mu.Lock()
	s.attachments.Remove(id)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.saveDraft(ctx)
	s.notify(snap)
}

// ToggleAttachment removes the attachment when one with the same id is
// already staged (tap-to-deselect), otherwise attempts an add.
func (s *Session) ToggleAttachment(ctx context.Context, att PendingAttachment) error {
	s.mu.Lock()
	if att.ID != "" && s.attachments.Contains(att.ID) {
		s.attachments.Remove(att.ID)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.saveDraft(ctx)
		s.notify(snap)
		return nil
	}
	s.mu.Unlock()
	return s.AddAttachment(ctx, att)
}

// IsSelected reports whether the attachment with the given id is staged.
func (s *Session) IsSelected(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attachments.Contains(id)
}

// Attachments returns the staged attachments in insertion order.
func (s *Session) Attachments() []PendingAttachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attachments.Items()
}

// ChangePicker sets the picker state unconditionally; there is no transition
// guard. The shown/overlay booleans are derived from the state on read.
func (s *Session) ChangePicker(state PickerState) {
	s.mu.Lock()
	s.picker = state
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// StartRecording begins a voice recording. Only valid from the initial
// phase; any other phase is a no-op.
func (s *Session) StartRecording() error {
	s.mu.Lock()
	if s.recording.Phase != RecordingInitial {
		s.mu.Unlock()
		return nil
	}
	if s.recorder == nil {
		s.mu.Unlock()
		return errors.New("no recorder configured")
	}
	s.generation++
	gen := s.generation
	s.recording = RecordingState{Phase: RecordingActive}
	s.recordingInfo = RecordingInfo{}
	s.pendingRec = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	err := s.recorder.Start(
		func(d time.Duration, power float64) { s.recorderProgress(gen, d, power) },
		func(err error) { s.recorderFailed(gen, err) },
	)
	if err != nil {
		s.recorderFailed(gen, err)
		return err
	}
	s.notify(snap)
	return nil
}

// UpdateRecordingDrag feeds a gesture translation into the recording state
// machine. Moving up past the lock threshold locks the recording; dragging
// left past the cancel threshold discards it and resets the metadata.
func (s *Session) UpdateRecordingDrag(offset DragOffset) {
	s.mu.Lock()
	next, cancelled := applyDrag(s.recording, offset)
	s.recording = next
	if cancelled {
		s.generation++
		s.recordingInfo = RecordingInfo{}
		s.pendingRec = nil
	}
	rec := s.recorder
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if cancelled && rec != nil {
		// Synchronous discard: a late recorder callback from the old
		// generation is fenced out by the counter.
		rec.Discard()
	}
	s.notify(snap)
}

// PreviewRecording finalizes the in-progress recording without sending it.
// Valid from the active and locked phases.
func (s *Session) PreviewRecording() {
	s.mu.Lock()
	if s.recording.Phase != RecordingActive && s.recording.Phase != RecordingLocked {
		s.mu.Unlock()
		return
	}
	gen := s.generation
	rec := s.recorder
	s.mu.Unlock()

	var result *RecordingResult
	var err error
	if rec != nil {
		result, err = rec.Stop()
	}
	if err != nil {
		s.recorderFailed(gen, err)
		return
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return
	}
	s.recording = RecordingState{Phase: RecordingStopped}
	s.pendingRec = result
	if result != nil {
		s.recordingInfo = RecordingInfo{Duration: result.Duration, Waveform: result.Waveform}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// DiscardRecording abandons the pending recording from any non-initial
// phase, clearing the buffered audio and resetting the metadata.
func (s *Session) DiscardRecording() {
	s.mu.Lock()
	if s.recording.Phase == RecordingInitial {
		s.mu.Unlock()
		return
	}
	s.generation++
	s.recording = InitialRecordingState()
	s.recordingInfo = RecordingInfo{}
	s.pendingRec = nil
	rec := s.recorder
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if rec != nil {
		rec.Discard()
	}
	s.notify(snap)
}

// ConfirmRecording moves the stopped recording into the attachment
// collection as a voice recording and resets the recording state. Only
// valid from the stopped phase.
func (s *Session) ConfirmRecording(ctx context.Context) {
	s.mu.Lock()
	if s.recording.Phase != RecordingStopped || s.pendingRec == nil {
		s.mu.Unlock()
		return
	}
	att := PendingAttachment{
		ID:       uuid.New().String(),
		Kind:     AttachmentVoiceRecording,
		LocalURL: s.pendingRec.URL,
		MIMEType: s.pendingRec.MIMEType,
		Duration: s.pendingRec.Duration,
		Waveform: s.pendingRec.Waveform,
	}
	s.attachments.Append(att)
	s.generation++
	s.recording = InitialRecordingState()
	s.recordingInfo = RecordingInfo{}
	s.pendingRec = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.saveDraft(ctx)
	s.notify(snap)
}

// recorderProgress handles a recorder progress callback. Stale generations
// and non-recording phases are dropped; live ones update the metadata in
// place without a phase change.
func (s *Session) recorderProgress(gen uint64, duration time.Duration, averagePower float64) {
	s.mu.Lock()
	if gen != s.generation ||
		(s.recording.Phase != RecordingActive && s.recording.Phase != RecordingLocked) {
		s.mu.Unlock()
		return
	}
	s.recordingInfo.Duration = duration
	s.recordingInfo.Waveform = append(s.recordingInfo.Waveform, averagePower)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// recorderFailed handles a terminal recorder failure: equivalent to a
// discard, plus the latched failure flag.
func (s *Session) recorderFailed(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.generation++
	s.recording = InitialRecordingState()
	s.recordingInfo = RecordingInfo{}
	s.pendingRec = nil
	s.recordingFailed = true
	snap := s.snapshotLocked()
	s.mu.Unlock()

	logger.Log.Warn("voice recording failed",
		zap.String("user_id", s.userID),
		zap.String("channel_id", s.channelID),
		zap.Error(err),
	)
	s.notify(snap)
}

// AddResolvedUsers feeds users resolved by the typing-suggestion flow into
// the session and re-scans the text for mentions.
func (s *Session) AddResolvedUsers(ctx context.Context, users ...MentionedUser) {
	s.mu.Lock()
	for _, u := range users {
		s.resolvedUsers[strings.ToLower(u.Name)] = u
	}
	s.deriveLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// SetInstantCommand binds an instant command (resolved without typing) to
// the session; the composer text becomes its argument.
func (s *Session) SetInstantCommand(cmd Command) {
	s.mu.Lock()
	s.instantCommand = &ActiveCommand{Command: cmd}
	s.deriveLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// ClearInstantCommand removes the instant command binding.
func (s *Session) ClearInstantCommand() {
	s.mu.Lock()
	s.instantCommand = nil
	s.deriveLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// SendButtonEnabled reports whether the composed message can be sent:
// trimmed text non-empty, or attachments staged, or a content-bearing slash
// command with a non-empty argument. Pure whitespace counts as empty.
func (s *Session) SendButtonEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendableLocked()
}

func (s *Session) sendableLocked() bool {
	if cmd := s.activeCommand; cmd != nil && cmd.Command.ContentBearing {
		return strings.TrimSpace(cmd.Args) != ""
	}
	if strings.TrimSpace(s.text) != "" {
		return true
	}
	return s.attachments.Len() > 0
}

// Send posts the composed message through the chat collaborator. On failure
// the composer content is left intact so the user can retry; on success all
// pending state is cleared and the draft deleted.
func (s *Session) Send(ctx context.Context) error {
	s.mu.Lock()
	if !s.sendableLocked() {
		s.mu.Unlock()
		return ErrNotSendable
	}
	req := SendRequest{
		ChannelID:        s.channelID,
		UserID:           s.userID,
		Text:             s.text,
		Command:          s.activeCommand,
		Attachments:      s.attachments.Items(),
		QuotedMessageID:  s.quotedMessageID,
		MentionedUserIDs: s.mentionIDsLocked(),
	}
	editID := s.editedMessageID
	s.mu.Unlock()

	var err error
	if editID != "" {
		err = s.chat.EditMessage(ctx, editID, req.Text, req.Attachments)
	} else {
		err = s.chat.SendMessage(ctx, req)
	}

	s.mu.Lock()
	if err != nil {
		s.sendFailed = true
		snap := s.snapshotLocked()
		s.mu.Unlock()
		logger.Log.Error("message send failed",
			zap.String("user_id", req.UserID),
			zap.String("channel_id", req.ChannelID),
			zap.Error(err),
		)
		s.notify(snap)
		return err
	}
	s.resetLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.deleteDraft(ctx)
	s.notify(snap)
	return nil
}

// Reset discards all pending composer state (edit-cancel, explicit clear).
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	s.resetLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.deleteDraft(ctx)
	s.notify(snap)
}

// DismissAlerts clears the latched error flags.
func (s *Session) DismissAlerts() {
	s.mu.Lock()
	s.attachmentRejected = false
	s.sendFailed = false
	s.recordingFailed = false
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// RestoreDraft seeds the session from a persisted draft. Intended for a
// freshly opened session; staged state is replaced, not merged.
func (s *Session) RestoreDraft(d Draft) {
	s.mu.Lock()
	s.text = d.Text
	s.attachments.Clear()
	for _, att := range d.Attachments {
		s.attachments.Append(att)
	}
	s.deriveLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Snapshot returns the current state for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) resetLocked() {
	s.text = ""
	s.attachments.Clear()
	s.picker = CollapsedPicker()
	s.generation++
	s.recording = InitialRecordingState()
	s.recordingInfo = RecordingInfo{}
	s.pendingRec = nil
	s.instantCommand = nil
	s.activeCommand = nil
	s.mentions = make(map[string]MentionedUser)
	s.attachmentRejected = false
	s.sendFailed = false
	s.recordingFailed = false
}

// deriveLocked recomputes the active command and mention set from the text.
func (s *Session) deriveLocked() {
	if strings.TrimSpace(s.text) == "" {
		s.mentions = make(map[string]MentionedUser)
		if s.instantCommand == nil {
			s.activeCommand = nil
		} else {
			s.activeCommand = deriveCommand(s.text, s.commands, s.instantCommand)
		}
		return
	}
	s.activeCommand = deriveCommand(s.text, s.commands, s.instantCommand)
	s.mentions = scanMentions(s.text, s.resolvedUsers)
}

func (s *Session) mentionIDsLocked() []string {
	if len(s.mentions) == 0 {
		return nil
	}
	ids := make([]string, 0, len(s.mentions))
	for id := range s.mentions {
		ids = append(ids, id)
	}
	return ids
}

func (s *Session) needsSizeCheck(att PendingAttachment) bool {
	if s.validator == nil || att.SizeBytes <= 0 {
		return false
	}
	return att.Kind == AttachmentImage || att.Kind == AttachmentVideo
}

func (s *Session) saveDraft(ctx context.Context) {
	if s.drafts == nil {
		return
	}
	s.mu.Lock()
	d := Draft{
		UserID:      s.userID,
		ChannelID:   s.channelID,
		Text:        s.text,
		Attachments: s.attachments.Items(),
		UpdatedAt:   time.Now().UTC(),
	}
	s.mu.Unlock()
	if err := s.drafts.Save(ctx, d); err != nil {
		logger.Log.Debug("draft save failed", zap.String("user_id", d.UserID), zap.Error(err))
	}
}

func (s *Session) deleteDraft(ctx context.Context) {
	if s.drafts == nil {
		return
	}
	if err := s.drafts.Delete(ctx, s.userID, s.channelID); err != nil {
		logger.Log.Debug("draft delete failed", zap.String("user_id", s.userID), zap.Error(err))
	}
}

func (s *Session) notify(snap Snapshot) {
	s.mu.Lock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(snap)
	}
}
