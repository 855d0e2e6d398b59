package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/voxchat/backend/internal/metrics"
)

func TestCacheMetricsRecording(t *testing.T) {
	m := metrics.Initialize()

	t.Run("hits and misses track per cache name", func(t *testing.T) {
		m.CacheHitsTotal.Reset()
		m.CacheMissesTotal.Reset()

		RecordCacheHit("command_suggestions")
		RecordCacheHit("command_suggestions")
		RecordCacheMiss("command_suggestions")

		assert.NotNil(t, m.CacheHitsTotal.WithLabelValues("command_suggestions"))
		assert.NotNil(t, m.CacheMissesTotal.WithLabelValues("command_suggestions"))
	})

	t.Run("separate caches get separate series", func(t *testing.T) {
		m.CacheHitsTotal.Reset()

		RecordCacheHit("gif_search")
		RecordCacheHit("draft_lookup")

		gifCounter := m.CacheHitsTotal.WithLabelValues("gif_search")
		draftCounter := m.CacheHitsTotal.WithLabelValues("draft_lookup")
		assert.NotNil(t, gifCounter)
		assert.NotNil(t, draftCounter)
		assert.NotEqual(t, gifCounter, draftCounter)
	})

	t.Run("operations record counter and duration together", func(t *testing.T) {
		m.CacheOperationsTotal.Reset()
		m.CacheOperationDuration.Reset()

		RecordCacheOperation("GET", "gif_search", 12*time.Millisecond)
		RecordCacheOperation("SET", "gif_search", 3*time.Millisecond)

		assert.NotNil(t, m.CacheOperationsTotal.WithLabelValues("GET", "gif_search"))
		assert.NotNil(t, m.CacheOperationsTotal.WithLabelValues("SET", "gif_search"))
		assert.NotNil(t, m.CacheOperationDuration.WithLabelValues("GET", "gif_search"))
	})

	t.Run("cache collectors are initialized", func(t *testing.T) {
		assert.NotNil(t, m.CacheHitsTotal)
		assert.NotNil(t, m.CacheMissesTotal)
		assert.NotNil(t, m.CacheOperationsTotal)
		assert.NotNil(t, m.CacheOperationDuration)
	})
}
