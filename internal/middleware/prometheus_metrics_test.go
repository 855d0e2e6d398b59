package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/metrics"
	"go.uber.org/zap"
)

func metricsTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	var err error
	logger.Log, err = zap.NewDevelopment()
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MetricsMiddleware())
	return router
}

func TestMetricsMiddlewareRecordsNumericStatusCodes(t *testing.T) {
	m := metrics.Initialize()
	m.HTTPRequestsTotal.Reset()

	router := metricsTestRouter(t)
	router.GET("/composer/:channel", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"state": "composing"})
	})
	router.GET("/drafts/:channel", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
	})
	router.POST("/messages", func(c *gin.Context) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "send_failed"})
	})

	for _, rc := range []struct {
		method, path string
	}{
		{"GET", "/composer/general"},
		{"GET", "/drafts/general"},
		{"POST", "/messages"},
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(rc.method, rc.path, nil))
	}

	// Status labels must be the numeric string, not http.StatusText, so
	// dashboards can match with regexes like status=~"5..".
	assert.NotNil(t, m.HTTPRequestsTotal.WithLabelValues("GET", "/composer/:channel", "200"))
	assert.NotNil(t, m.HTTPRequestsTotal.WithLabelValues("GET", "/drafts/:channel", "404"))
	assert.NotNil(t, m.HTTPRequestsTotal.WithLabelValues("POST", "/messages", "502"))

	textLabel := m.HTTPRequestsTotal.WithLabelValues("GET", "/composer/:channel", "OK")
	numericLabel := m.HTTPRequestsTotal.WithLabelValues("GET", "/composer/:channel", "200")
	assert.NotEqual(t, textLabel, numericLabel)
}

func TestMetricsMiddlewareUsesRouteTemplateAsPathLabel(t *testing.T) {
	m := metrics.Initialize()
	m.HTTPRequestsTotal.Reset()

	router := metricsTestRouter(t)
	router.GET("/composer/:channel/recording", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// Two channels, one series: the path label is the route template, not
	// the raw URL, or per-channel cardinality would grow without bound.
	for _, path := range []string{"/composer/general/recording", "/composer/random/recording"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	}

	assert.NotNil(t, m.HTTPRequestsTotal.WithLabelValues("GET", "/composer/:channel/recording", "200"))
}
