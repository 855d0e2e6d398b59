package composer

import (
	"context"
	"sync"
	"time"
)

// mockChatSession records send/edit calls and lets tests fail them.
type mockChatSession struct {
	mu sync.Mutex

	SendFunc func(ctx context.Context, req SendRequest) error
	EditFunc func(ctx context.Context, messageID, text string, attachments []PendingAttachment) error

	SendCalls []SendRequest
	EditCalls []string
}

func (m *mockChatSession) SendMessage(ctx context.Context, req SendRequest) error {
	m.mu.Lock()
	m.SendCalls = append(m.SendCalls, req)
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, req)
	}
	return nil
}

func (m *mockChatSession) EditMessage(ctx context.Context, messageID, text string, attachments []PendingAttachment) error {
	m.mu.Lock()
	m.EditCalls = append(m.EditCalls, messageID)
	m.mu.Unlock()
	if m.EditFunc != nil {
		return m.EditFunc(ctx, messageID, text, attachments)
	}
	return nil
}

// mockValidator rejects sizes above Max; zero Max accepts everything.
type mockValidator struct {
	Max   int64
	Calls []int64
}

func (m *mockValidator) Validate(ctx context.Context, sizeBytes int64) error {
	m.Calls = append(m.Calls, sizeBytes)
	if m.Max > 0 && sizeBytes > m.Max {
		return ErrSizeExceeded
	}
	return nil
}

// mockRecorder captures the callbacks handed to Start so tests can drive
// progress and failure, and counts discards.
type mockRecorder struct {
	mu sync.Mutex

	StartFunc func() error
	StopFunc  func() (*RecordingResult, error)

	onProgress func(time.Duration, float64)
	onFailure  func(error)
	Discards   int
}

func (m *mockRecorder) Start(onProgress func(time.Duration, float64), onFailure func(error)) error {
	m.mu.Lock()
	m.onProgress = onProgress
	m.onFailure = onFailure
	m.mu.Unlock()
	if m.StartFunc != nil {
		return m.StartFunc()
	}
	return nil
}

func (m *mockRecorder) Stop() (*RecordingResult, error) {
	if m.StopFunc != nil {
		return m.StopFunc()
	}
	return &RecordingResult{
		URL:      "file:///tmp/recording.wav",
		MIMEType: "audio/wav",
		Duration: 3 * time.Second,
		Waveform: []float64{0.1, 0.4, 0.2},
	}, nil
}

func (m *mockRecorder) Discard() {
	m.mu.Lock()
	m.Discards++
	m.mu.Unlock()
}

func (m *mockRecorder) progress(d time.Duration, power float64) {
	m.mu.Lock()
	fn := m.onProgress
	m.mu.Unlock()
	if fn != nil {
		fn(d, power)
	}
}

func (m *mockRecorder) fail(err error) {
	m.mu.Lock()
	fn := m.onFailure
	m.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// mockDraftStore is an in-memory DraftStore.
type mockDraftStore struct {
	mu     sync.Mutex
	drafts map[string]Draft
}

func newMockDraftStore() *mockDraftStore {
	return &mockDraftStore{drafts: make(map[string]Draft)}
}

func (m *mockDraftStore) Save(ctx context.Context, d Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[d.UserID+"/"+d.ChannelID] = d
	return nil
}

func (m *mockDraftStore) Load(ctx context.Context, userID, channelID string) (*Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[userID+"/"+channelID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *mockDraftStore) Delete(ctx context.Context, userID, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, userID+"/"+channelID)
	return nil
}

// testCommands is a fixed command set: /giphy needs content, /shrug does not.
type testCommands map[string]Command

func (t testCommands) Lookup(name string) (Command, bool) {
	cmd, ok := t[name]
	return cmd, ok
}

func defaultTestCommands() testCommands {
	return testCommands{
		"giphy": {Name: "giphy", ContentBearing: true},
		"shrug": {Name: "shrug", ContentBearing: false},
		"mute":  {Name: "mute", ContentBearing: true},
	}
}

func newTestSession(chat *mockChatSession, rec *mockRecorder, val *mockValidator) *Session {
	cfg := SessionConfig{
		UserID:    "user-1",
		ChannelID: "channel-1",
		Commands:  defaultTestCommands(),
	}
	if chat != nil {
		cfg.Chat = chat
	}
	if rec != nil {
		cfg.Recorder = rec
	}
	if val != nil {
		cfg.Validator = val
	}
	return NewSession(cfg)
}

func imageAttachment(id string, size int64) PendingAttachment {
	return PendingAttachment{ID: id, Kind: AttachmentImage, LocalURL: "file:///tmp/" + id + ".jpg", SizeBytes: size}
}

func fileAttachment(id string) PendingAttachment {
	return PendingAttachment{ID: id, Kind: AttachmentFile, LocalURL: "file:///tmp/" + id + ".pdf"}
}
