package drafts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/voxchat/backend/internal/composer"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	// Create the drafts table manually with SQLite-compatible syntax
	// (GORM AutoMigrate tries to use PostgreSQL-specific features like gen_random_uuid)
	err = db.Exec(`
		CREATE TABLE message_drafts (
			id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
			user_id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			text TEXT,
			attachments TEXT,
			created_at DATETIME,
			updated_at DATETIME,
			UNIQUE(user_id, channel_id)
		)
	`).Error
	require.NoError(t, err)

	return db
}

func TestStoreSaveAndLoad(t *testing.T) {
	store := NewStore(setupTestDB(t), nil)
	ctx := context.Background()

	draft := composer.Draft{
		UserID:    "u1",
		ChannelID: "ch1",
		Text:      "half-typed message",
		Attachments: []composer.PendingAttachment{
			{ID: "a1", Kind: composer.AttachmentImage, LocalURL: "https://cdn/1.jpg"},
		},
		UpdatedAt: time.Now(),
	}
	require.NoError(t, store.Save(ctx, draft))

	loaded, err := store.Load(ctx, "u1", "ch1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "half-typed message", loaded.Text)
	require.Len(t, loaded.Attachments, 1)
	assert.Equal(t, "a1", loaded.Attachments[0].ID)
}

func TestStoreLoadMissing(t *testing.T) {
	store := NewStore(setupTestDB(t), nil)

	loaded, err := store.Load(context.Background(), "u1", "nowhere")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStoreSaveOverwrites(t *testing.T) {
	store := NewStore(setupTestDB(t), nil)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, composer.Draft{UserID: "u1", ChannelID: "ch1", Text: "first"}))
	require.NoError(t, store.Save(ctx, composer.Draft{UserID: "u1", ChannelID: "ch1", Text: "second"}))

	loaded, err := store.Load(ctx, "u1", "ch1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "second", loaded.Text)

	var count int64
	store.db.Table("message_drafts").Count(&count)
	assert.Equal(t, int64(1), count, "upsert must not duplicate rows")
}

func TestStoreDelete(t *testing.T) {
	store := NewStore(setupTestDB(t), nil)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, composer.Draft{UserID: "u1", ChannelID: "ch1", Text: "bye"}))
	require.NoError(t, store.Delete(ctx, "u1", "ch1"))

	loaded, err := store.Load(ctx, "u1", "ch1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStoreDraftsAreScoped(t *testing.T) {
	store := NewStore(setupTestDB(t), nil)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, composer.Draft{UserID: "u1", ChannelID: "ch1", Text: "one"}))
	require.NoError(t, store.Save(ctx, composer.Draft{UserID: "u1", ChannelID: "ch2", Text: "two"}))
	require.NoError(t, store.Save(ctx, composer.Draft{UserID: "u2", ChannelID: "ch1", Text: "three"}))

	loaded, err := store.Load(ctx, "u1", "ch2")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "two", loaded.Text)
}
