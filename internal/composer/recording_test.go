package composer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingLockTransition(t *testing.T) {
	rec := &mockRecorder{}
	s := newTestSession(nil, rec, nil)

	require.NoError(t, s.StartRecording())
	assert.Equal(t, RecordingActive, s.Snapshot().Recording.Phase)
	assert.False(t, s.Snapshot().ShowsComposer)

	// Short upward drag stays recording with the new offset.
	s.UpdateRecordingDrag(DragOffset{X: 0, Y: -40})
	snap := s.Snapshot()
	assert.Equal(t, RecordingActive, snap.Recording.Phase)
	assert.Equal(t, -40.0, snap.Recording.Offset.Y)

	// Past the lock threshold the recording locks.
	s.UpdateRecordingDrag(DragOffset{X: 0, Y: -LockDistance})
	assert.Equal(t, RecordingLocked, s.Snapshot().Recording.Phase)
	assert.False(t, s.Snapshot().ShowsComposer)
}

func TestRecordingCancelByDrag(t *testing.T) {
	rec := &mockRecorder{}
	s := newTestSession(nil, rec, nil)

	require.NoError(t, s.StartRecording())
	rec.progress(time.Second, 0.5)
	require.NotEmpty(t, s.Snapshot().RecordingInfo.Waveform)

	s.UpdateRecordingDrag(DragOffset{X: -CancelDistance, Y: 0})
	snap := s.Snapshot()
	assert.Equal(t, RecordingInitial, snap.Recording.Phase)
	assert.True(t, snap.ShowsComposer)
	assert.Zero(t, snap.RecordingInfo.Duration, "metadata resets on cancel")
	assert.Empty(t, snap.RecordingInfo.Waveform)
	assert.Equal(t, 1, rec.Discards)

	// A late progress callback from the cancelled recording must not
	// resurrect it.
	rec.progress(2*time.Second, 0.9)
	snap = s.Snapshot()
	assert.Equal(t, RecordingInitial, snap.Recording.Phase)
	assert.Empty(t, snap.RecordingInfo.Waveform)
}

func TestRecordingPreviewAndConfirm(t *testing.T) {
	rec := &mockRecorder{}
	s := newTestSession(nil, rec, nil)
	ctx := context.Background()

	require.NoError(t, s.StartRecording())
	rec.progress(2*time.Second, 0.3)

	s.PreviewRecording()
	snap := s.Snapshot()
	require.Equal(t, RecordingStopped, snap.Recording.Phase)
	assert.Equal(t, 3*time.Second, snap.RecordingInfo.Duration)

	s.ConfirmRecording(ctx)
	snap = s.Snapshot()
	assert.Equal(t, RecordingInitial, snap.Recording.Phase)
	assert.Zero(t, snap.RecordingInfo.Duration, "metadata resets to defaults on confirm")

	atts := s.Attachments()
	require.Len(t, atts, 1, "confirm moves exactly one voice recording into the collection")
	assert.Equal(t, AttachmentVoiceRecording, atts[0].Kind)
	assert.Equal(t, 3*time.Second, atts[0].Duration)
	assert.Equal(t, "file:///tmp/recording.wav", atts[0].LocalURL)
}

func TestRecordingPreviewFromLocked(t *testing.T) {
	rec := &mockRecorder{}
	s := newTestSession(nil, rec, nil)

	require.NoError(t, s.StartRecording())
	s.UpdateRecordingDrag(DragOffset{Y: -LockDistance})
	require.Equal(t, RecordingLocked, s.Snapshot().Recording.Phase)

	s.PreviewRecording()
	assert.Equal(t, RecordingStopped, s.Snapshot().Recording.Phase)
}

func TestRecordingConfirmOnlyFromStopped(t *testing.T) {
	rec := &mockRecorder{}
	s := newTestSession(nil, rec, nil)
	ctx := context.Background()

	require.NoError(t, s.StartRecording())
	s.ConfirmRecording(ctx)
	assert.Empty(t, s.Attachments(), "confirm from recording phase is a no-op")
	assert.Equal(t, RecordingActive, s.Snapshot().Recording.Phase)
}

func TestRecordingDiscardFromAnyPhase(t *testing.T) {
	for _, phase := range []string{"recording", "locked", "stopped"} {
		t.Run(phase, func(t *testing.T) {
			rec := &mockRecorder{}
			s := newTestSession(nil, rec, nil)
			require.NoError(t, s.StartRecording())

			switch phase {
			case "locked":
				s.UpdateRecordingDrag(DragOffset{Y: -LockDistance})
			case "stopped":
				s.PreviewRecording()
			}

			s.DiscardRecording()
			snap := s.Snapshot()
			assert.Equal(t, RecordingInitial, snap.Recording.Phase)
			assert.Zero(t, snap.RecordingInfo.Duration)
			assert.Empty(t, s.Attachments())
		})
	}
}

func TestRecorderFailureForcesInitial(t *testing.T) {
	rec := &mockRecorder{}
	s := newTestSession(nil, rec, nil)

	require.NoError(t, s.StartRecording())
	rec.progress(time.Second, 0.2)

	rec.fail(errors.New("microphone lost"))
	snap := s.Snapshot()
	assert.Equal(t, RecordingInitial, snap.Recording.Phase)
	assert.True(t, snap.RecordingFailed)
	assert.Empty(t, snap.RecordingInfo.Waveform)

	// The failure generation is fenced: replaying it is a no-op.
	rec.fail(errors.New("again"))
	assert.Equal(t, RecordingInitial, s.Snapshot().Recording.Phase)
}

func TestRecordingProgressUpdatesMetadataInPlace(t *testing.T) {
	rec := &mockRecorder{}
	s := newTestSession(nil, rec, nil)

	require.NoError(t, s.StartRecording())
	rec.progress(500*time.Millisecond, 0.1)
	rec.progress(time.Second, 0.7)

	snap := s.Snapshot()
	assert.Equal(t, RecordingActive, snap.Recording.Phase, "progress callbacks never change phase")
	assert.Equal(t, time.Second, snap.RecordingInfo.Duration)
	assert.Equal(t, []float64{0.1, 0.7}, snap.RecordingInfo.Waveform)
}

func TestStartRecordingIgnoredWhileActive(t *testing.T) {
	rec := &mockRecorder{}
	s := newTestSession(nil, rec, nil)

	require.NoError(t, s.StartRecording())
	rec.progress(time.Second, 0.4)
	require.NoError(t, s.StartRecording(), "second start is a no-op")

	snap := s.Snapshot()
	assert.Equal(t, time.Second, snap.RecordingInfo.Duration, "no-op start must not reset metadata")
}

func TestDragIgnoredWhenLocked(t *testing.T) {
	rec := &mockRecorder{}
	s := newTestSession(nil, rec, nil)

	require.NoError(t, s.StartRecording())
	s.UpdateRecordingDrag(DragOffset{Y: -LockDistance})
	require.Equal(t, RecordingLocked, s.Snapshot().Recording.Phase)

	// Once locked, a cancel-distance drag no longer discards.
	s.UpdateRecordingDrag(DragOffset{X: -CancelDistance})
	assert.Equal(t, RecordingLocked, s.Snapshot().Recording.Phase)
}
