package composer

import "sort"

// Snapshot is an immutable view of the session for renderers. It is what
// observers receive and what the HTTP and WebSocket surfaces serialize.
// Derived booleans are computed at snapshot time from the underlying state.
type Snapshot struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`

	Text        string              `json:"text"`
	Attachments []PendingAttachment `json:"attachments"`

	Picker            PickerState `json:"picker"`
	OverlayShown      bool        `json:"overlay_shown"`
	CameraPickerShown bool        `json:"camera_picker_shown"`
	FilePickerShown   bool        `json:"file_picker_shown"`

	Recording     RecordingState `json:"recording"`
	RecordingInfo RecordingInfo  `json:"recording_info"`
	ShowsComposer bool           `json:"shows_composer"`

	Command  *ActiveCommand  `json:"command,omitempty"`
	Mentions []MentionedUser `json:"mentions,omitempty"`

	SendButtonEnabled  bool `json:"send_button_enabled"`
	AttachmentRejected bool `json:"attachment_rejected"`
	SendFailed         bool `json:"send_failed"`
	RecordingFailed    bool `json:"recording_failed"`
}

// snapshotLocked builds a Snapshot; callers must hold s.mu.
func (s *Session) snapshotLocked() Snapshot {
	var cmd *ActiveCommand
	if s.activeCommand != nil {
		c := *s.activeCommand
		cmd = &c
	}

	mentions := make([]MentionedUser, 0, len(s.mentions))
	for _, u := range s.mentions {
		mentions = append(mentions, u)
	}
	sort.Slice(mentions, func(i, j int) bool { return mentions[i].ID < mentions[j].ID })

	info := s.recordingInfo
	if len(info.Waveform) > 0 {
		wf := make([]float64, len(info.Waveform))
		copy(wf, info.Waveform)
		info.Waveform = wf
	}

	return Snapshot{
		UserID:             s.userID,
		ChannelID:          s.channelID,
		Text:               s.text,
		Attachments:        s.attachments.Items(),
		Picker:             s.picker,
		OverlayShown:       s.picker.OverlayShown(),
		CameraPickerShown:  s.picker.CameraPickerShown(),
		FilePickerShown:    s.picker.FilePickerShown(),
		Recording:          s.recording,
		RecordingInfo:      info,
		ShowsComposer:      s.recording.ShowsComposer(),
		Command:            cmd,
		Mentions:           mentions,
		SendButtonEnabled:  s.sendableLocked(),
		AttachmentRejected: s.attachmentRejected,
		SendFailed:         s.sendFailed,
		RecordingFailed:    s.recordingFailed,
	}
}
