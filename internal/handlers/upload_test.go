package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxchat/backend/internal/composer"
	"github.com/voxchat/backend/internal/directory"
	"github.com/voxchat/backend/internal/storage"
	"github.com/voxchat/backend/internal/stream"
)

// fakeUploader records uploads and hands back deterministic URLs
type fakeUploader struct {
	uploads []string
	err     error
}

func (f *fakeUploader) UploadAttachment(ctx context.Context, data []byte, userID, filename, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploads = append(f.uploads, filename)
	return "https://cdn.voxchat.io/attachments/" + filename, nil
}

func (f *fakeUploader) UploadVoiceNote(ctx context.Context, data []byte, userID, filename, contentType string) (*storage.UploadResult, error) {
	return &storage.UploadResult{URL: "https://cdn.voxchat.io/voice/note.wav"}, nil
}

func multipartUpload(t *testing.T, env *testEnv, filename, kind string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	if kind != "" {
		require.NoError(t, writer.WriteField("kind", kind))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/channels/"+testChannel+"/composer/attachments/upload", &buf)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestUploadAttachmentStagesRemoteURL(t *testing.T) {
	env := setupTestEnv(t)
	uploader := &fakeUploader{}
	env.h.SetUploader(uploader)
	env.open(t)

	w := multipartUpload(t, env, "photo.jpg", "", []byte("jpeg-bytes"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		URL        string                     `json:"url"`
		Attachment composer.PendingAttachment `json:"attachment"`
		Session    composer.Snapshot          `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://cdn.voxchat.io/attachments/photo.jpg", resp.URL)
	assert.Equal(t, composer.AttachmentImage, resp.Attachment.Kind) // inferred from extension
	require.Len(t, resp.Session.Attachments, 1)
	assert.Equal(t, resp.URL, resp.Session.Attachments[0].LocalURL)
	assert.Equal(t, []string{"photo.jpg"}, uploader.uploads)
}

func TestUploadAttachmentKindHintWins(t *testing.T) {
	env := setupTestEnv(t)
	env.h.SetUploader(&fakeUploader{})
	env.open(t)

	w := multipartUpload(t, env, "archive.bin", "custom", []byte{0x01})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Attachment composer.PendingAttachment `json:"attachment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, composer.AttachmentCustom, resp.Attachment.Kind)
}

func TestUploadFailureUnstagesPlaceholder(t *testing.T) {
	env := setupTestEnv(t)
	env.h.SetUploader(&fakeUploader{err: fmt.Errorf("s3 is down")})
	env.open(t)

	w := multipartUpload(t, env, "photo.jpg", "", []byte("jpeg-bytes"))
	require.Equal(t, http.StatusBadGateway, w.Code)

	// The placeholder must not leak into the session
	w2 := env.do(t, http.MethodGet, "/api/v1/channels/"+testChannel+"/composer", nil)
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Empty(t, snapshotFrom(t, w2).Attachments)
}

func TestUploadRespectsAttachmentCap(t *testing.T) {
	env := setupTestEnv(t)
	uploader := &fakeUploader{}
	env.h.SetUploader(uploader)
	env.open(t)

	for i := 0; i < composer.MaxAttachments; i++ {
		w := env.do(t, http.MethodPost, "/api/v1/channels/"+testChannel+"/composer/attachments", gin.H{
			"id":   fmt.Sprintf("att-%d", i),
			"kind": "image",
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := multipartUpload(t, env, "overflow.jpg", "", []byte("x"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, uploader.uploads) // rejected before any bytes left the box
}

func TestMentionAutocompleteFeedsSession(t *testing.T) {
	env := setupTestEnv(t)

	chat := stream.NewMockChatService()
	chat.QueryUsersByNameFunc = func(ctx context.Context, nameToken string, limit int) ([]*stream.ChatUser, error) {
		return []*stream.ChatUser{
			{ID: "u-alice", Name: "alice"},
			{ID: "u-alicia", Name: "alicia"},
		}, nil
	}
	env.h.SetDirectoryResolver(directory.NewResolver(chat, nil))
	env.open(t)

	w := env.do(t, http.MethodGet, "/api/v1/channels/"+testChannel+"/composer/mentions?q=ali", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Users []composer.MentionedUser `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Users, 2)

	// Typing the resolved name now binds the mention
	w = env.do(t, http.MethodPut, "/api/v1/channels/"+testChannel+"/composer/text", gin.H{
		"text": "hey @alice, ship it",
	})
	require.Equal(t, http.StatusOK, w.Code)

	snap := snapshotFrom(t, w)
	require.Len(t, snap.Mentions, 1)
	assert.Equal(t, "u-alice", snap.Mentions[0].ID)
}

func TestMentionAutocompleteRequiresToken(t *testing.T) {
	env := setupTestEnv(t)
	env.open(t)

	w := env.do(t, http.MethodGet, "/api/v1/channels/"+testChannel+"/composer/mentions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
