package composer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentCapRejectsEleventh(t *testing.T) {
	s := newTestSession(nil, nil, nil)
	ctx := context.Background()

	for i := 0; i < MaxAttachments; i++ {
		err := s.AddAttachment(ctx, fileAttachment(fmt.Sprintf("file-%d", i)))
		require.NoError(t, err)
	}
	require.Equal(t, MaxAttachments, len(s.Attachments()))
	assert.False(t, s.Snapshot().AttachmentRejected)

	err := s.AddAttachment(ctx, fileAttachment("file-overflow"))
	assert.ErrorIs(t, err, ErrAttachmentLimit)
	assert.Equal(t, MaxAttachments, len(s.Attachments()))
	assert.True(t, s.Snapshot().AttachmentRejected, "limit flag should latch on the 11th attempt")
}

func TestAttachmentCapMixedKinds(t *testing.T) {
	s := newTestSession(nil, nil, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddAttachment(ctx, imageAttachment(fmt.Sprintf("img-%d", i), 1024)))
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddAttachment(ctx, fileAttachment(fmt.Sprintf("file-%d", i))))
	}
	require.Equal(t, 10, len(s.Attachments()))

	assert.ErrorIs(t, s.AddAttachment(ctx, imageAttachment("img-extra", 1024)), ErrAttachmentLimit)
	assert.ErrorIs(t, s.AddAttachment(ctx, fileAttachment("file-extra")), ErrAttachmentLimit)
	assert.Equal(t, 10, len(s.Attachments()))
	assert.True(t, s.Snapshot().AttachmentRejected)
}

func TestSizeRejectionSetsSameFlag(t *testing.T) {
	val := &mockValidator{Max: 100}
	s := newTestSession(nil, nil, val)
	ctx := context.Background()

	// Byte-size rejection fires the flag even though the count cap is far
	// from reached.
	err := s.AddAttachment(ctx, imageAttachment("big", 101))
	assert.ErrorIs(t, err, ErrSizeExceeded)
	assert.Empty(t, s.Attachments())
	assert.True(t, s.Snapshot().AttachmentRejected)

	// A subsequent successful add clears the latch.
	require.NoError(t, s.AddAttachment(ctx, imageAttachment("small", 50)))
	assert.False(t, s.Snapshot().AttachmentRejected)
	assert.Equal(t, []int64{101, 50}, val.Calls)
}

func TestSizeValidatorSkipsFiles(t *testing.T) {
	val := &mockValidator{Max: 100}
	s := newTestSession(nil, nil, val)

	require.NoError(t, s.AddAttachment(context.Background(), fileAttachment("doc")))
	assert.Empty(t, val.Calls, "only image/video assets hit the CDN size check")
}

func TestToggleIsIdempotentPair(t *testing.T) {
	s := newTestSession(nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, s.AddAttachment(ctx, fileAttachment("keep")))
	att := imageAttachment("toggled", 10)

	require.NoError(t, s.ToggleAttachment(ctx, att))
	assert.True(t, s.IsSelected("toggled"))
	assert.Equal(t, 2, len(s.Attachments()))

	require.NoError(t, s.ToggleAttachment(ctx, att))
	assert.False(t, s.IsSelected("toggled"))
	assert.Equal(t, 1, len(s.Attachments()))
	assert.True(t, s.IsSelected("keep"))
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	s := newTestSession(nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, s.AddAttachment(ctx, fileAttachment("a")))
	s.RemoveAttachment(ctx, "missing")
	assert.Equal(t, 1, len(s.Attachments()))
}

func TestCollectionPreservesInsertionOrder(t *testing.T) {
	c := NewAttachmentCollection()
	for _, id := range []string{"a", "b", "c", "d"} {
		require.True(t, c.Append(fileAttachment(id)))
	}
	require.True(t, c.Remove("b"))

	items := c.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "c", items[1].ID)
	assert.Equal(t, "d", items[2].ID)
	assert.True(t, c.Contains("d"))
	assert.False(t, c.Contains("b"))
}

func TestCollectionRejectsDuplicateIDs(t *testing.T) {
	c := NewAttachmentCollection()
	require.True(t, c.Append(fileAttachment("dup")))
	assert.False(t, c.Append(fileAttachment("dup")))
	assert.Equal(t, 1, c.Len())
}

func TestVoiceRecordingsDoNotConsumeCap(t *testing.T) {
	c := NewAttachmentCollection()
	require.True(t, c.Append(PendingAttachment{ID: "voice", Kind: AttachmentVoiceRecording}))
	for i := 0; i < 3; i++ {
		require.True(t, c.Append(fileAttachment(fmt.Sprintf("f-%d", i))))
	}
	assert.Equal(t, 4, c.Len())
	assert.Equal(t, 3, c.CountExcludingVoice())
}
