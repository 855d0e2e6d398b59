package composer

import (
	"context"
	"sync"

	"github.com/voxchat/backend/internal/logger"
	"go.uber.org/zap"
)

// RecorderFactory builds a fresh recorder for each session; recorders hold
// per-recording buffers and are not shared.
type RecorderFactory func() Recorder

// ManagerConfig carries the collaborator set the manager hands to every
// session it opens.
type ManagerConfig struct {
	Chat        ChatSession
	Validator   SizeValidator
	NewRecorder RecorderFactory
	Commands    CommandSet
	Drafts      DraftStore
}

// Manager owns the live composer sessions, keyed by user and channel. It is
// the explicit session context that replaces any process-wide shared state:
// created at service start, disposed at shutdown.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      ManagerConfig
}

// NewManager creates an empty session manager.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
	}
}

func sessionKey(userID, channelID string) string {
	return userID + "/" + channelID
}

// Open returns the live session for the user and channel, creating one and
// restoring its draft if none exists.
func (m *Manager) Open(ctx context.Context, userID, channelID string) *Session {
	m.mu.Lock()
	key := sessionKey(userID, channelID)
	if s, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		return s
	}
	s := m.newSession(userID, channelID, "", "")
	m.sessions[key] = s
	m.mu.Unlock()

	if m.cfg.Drafts != nil {
		d, err := m.cfg.Drafts.Load(ctx, userID, channelID)
		if err != nil {
			logger.Log.Debug("draft load failed",
				zap.String("user_id", userID),
				zap.String("channel_id", channelID),
				zap.Error(err),
			)
		} else if d != nil {
			s.RestoreDraft(*d)
		}
	}
	return s
}

// OpenForEdit creates a session pre-seeded with an existing message's
// content. Edits do not restore drafts; the message itself is the draft.
func (m *Manager) OpenForEdit(userID, channelID, messageID, text string, attachments []PendingAttachment) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.newSession(userID, channelID, "", messageID)
	s.RestoreDraft(Draft{UserID: userID, ChannelID: channelID, Text: text, Attachments: attachments})
	m.sessions[sessionKey(userID, channelID)] = s
	return s
}

// OpenWithQuote creates or returns a session replying to a quoted message.
func (m *Manager) OpenWithQuote(ctx context.Context, userID, channelID, quotedMessageID string) *Session {
	m.mu.Lock()
	key := sessionKey(userID, channelID)
	if s, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		return s
	}
	s := m.newSession(userID, channelID, quotedMessageID, "")
	m.sessions[key] = s
	m.mu.Unlock()
	return s
}

// Get returns the live session, if any.
func (m *Manager) Get(userID, channelID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionKey(userID, channelID)]
	return s, ok
}

// Close drops the live session. When discard is true the pending content and
// draft are thrown away; otherwise the draft survives for the next Open.
func (m *Manager) Close(ctx context.Context, userID, channelID string, discard bool) {
	m.mu.Lock()
	key := sessionKey(userID, channelID)
	s, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if ok && discard {
		s.Reset(ctx)
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) newSession(userID, channelID, quotedMessageID, editedMessageID string) *Session {
	var rec Recorder
	if m.cfg.NewRecorder != nil {
		rec = m.cfg.NewRecorder()
	}
	return NewSession(SessionConfig{
		UserID:          userID,
		ChannelID:       channelID,
		QuotedMessageID: quotedMessageID,
		EditedMessageID: editedMessageID,
		Chat:            m.cfg.Chat,
		Validator:       m.cfg.Validator,
		Recorder:        rec,
		Commands:        m.cfg.Commands,
		Drafts:          m.cfg.Drafts,
	})
}
