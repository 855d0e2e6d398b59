package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxchat/backend/internal/composer"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()

	giphy, ok := r.Lookup("giphy")
	require.True(t, ok)
	assert.True(t, giphy.ContentBearing)

	shrug, ok := r.Lookup("shrug")
	require.True(t, ok)
	assert.False(t, shrug.ContentBearing)

	_, ok = r.Lookup("nonexistent")
	assert.False(t, ok)
}

func TestRegistryLookupCaseInsensitive(t *testing.T) {
	r := NewRegistry(composer.Command{Name: "Giphy", ContentBearing: true})

	_, ok := r.Lookup("giphy")
	assert.True(t, ok)
	_, ok = r.Lookup("GIPHY")
	assert.True(t, ok)
}

func TestRegistryRegisterReplaces(t *testing.T) {
	r := NewRegistry(composer.Command{Name: "mute"})
	r.Register(composer.Command{Name: "mute", Description: "updated", ContentBearing: true})

	cmd, ok := r.Lookup("mute")
	require.True(t, ok)
	assert.Equal(t, "updated", cmd.Description)
	assert.True(t, cmd.ContentBearing)
}

func TestRegistryAllSorted(t *testing.T) {
	r := Default()

	all := r.All()
	require.Len(t, all, 4)
	assert.Equal(t, "giphy", all[0].Name)
	assert.Equal(t, "mute", all[1].Name)
	assert.Equal(t, "shrug", all[2].Name)
	assert.Equal(t, "unmute", all[3].Name)
}
