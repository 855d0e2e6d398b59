package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STREAM_API_KEY", "key")
	t.Setenv("STREAM_API_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, int64(100*1024*1024), cfg.MaxAttachmentBytes)
	assert.Equal(t, 44100, cfg.RecordingSampleRate)
	assert.False(t, cfg.IsProduction())
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STREAM_API_KEY", "key")
	t.Setenv("STREAM_API_SECRET", "secret")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STREAM_API_KEY", "")

	_, err = Load()
	assert.ErrorContains(t, err, "STREAM_API_KEY")
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("MAX_ATTACHMENT_BYTES", "1048576")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("TRACE_SAMPLE_RATE", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, int64(1048576), cfg.MaxAttachmentBytes)
	assert.True(t, cfg.TracingEnabled)
	assert.Equal(t, 0.5, cfg.TraceSampleRate)
}

func TestInvalidNumericEnvFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_ATTACHMENT_BYTES", "not-a-number")
	t.Setenv("RECORDING_SAMPLE_RATE", "???")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(100*1024*1024), cfg.MaxAttachmentBytes)
	assert.Equal(t, 44100, cfg.RecordingSampleRate)
}
