package composer

import "time"

// Drag thresholds for the hold-to-record gesture, in points of gesture
// translation. Moving up past LockDistance locks the recording so the user
// can release; dragging left past CancelDistance discards it.
const (
	LockDistance   = 120.0
	CancelDistance = 100.0
)

// RecordingPhase is the voice-recording sub-state of the composer.
type RecordingPhase string

const (
	RecordingInitial RecordingPhase = "initial"
	RecordingActive  RecordingPhase = "recording"
	RecordingLocked  RecordingPhase = "locked"
	RecordingStopped RecordingPhase = "stopped"
)

// DragOffset is the current translation of the hold-to-record gesture.
type DragOffset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RecordingState is the finite state machine driving the voice-recording
// overlay. The offset is only meaningful while the phase is RecordingActive.
type RecordingState struct {
	Phase  RecordingPhase `json:"phase"`
	Offset DragOffset     `json:"offset"`
}

// InitialRecordingState returns the resting state with no recording in
// progress.
func InitialRecordingState() RecordingState {
	return RecordingState{Phase: RecordingInitial}
}

// ShowsComposer reports whether the text composer is visible instead of the
// recording overlay. Derived, never stored.
func (r RecordingState) ShowsComposer() bool {
	return r.Phase == RecordingInitial
}

// RecordingInfo is the live metadata of an in-progress or stopped recording.
// It is updated in place by recorder progress callbacks and reset to its
// zero value whenever a recording is discarded or confirmed.
type RecordingInfo struct {
	Duration time.Duration `json:"duration"`
	Waveform []float64     `json:"waveform,omitempty"`
}

// RecordingResult is what the audio recorder hands back when a recording is
// finalized: where the captured audio lives plus its display metadata.
type RecordingResult struct {
	URL      string
	MIMEType string
	Duration time.Duration
	Waveform []float64
}

// applyDrag computes the next recording state for a gesture update. It
// returns the new state and whether the update cancelled the recording.
// Transitions only fire from the active phase; locked and stopped ignore
// drag updates.
func applyDrag(state RecordingState, offset DragOffset) (RecordingState, bool) {
	if state.Phase != RecordingActive {
		return state, false
	}
	if offset.Y <= -LockDistance {
		return RecordingState{Phase: RecordingLocked}, false
	}
	if offset.X <= -CancelDistance {
		return InitialRecordingState(), true
	}
	return RecordingState{Phase: RecordingActive, Offset: offset}, false
}
