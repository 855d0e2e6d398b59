package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware wraps otelgin and enriches the request span with the
// composer's routing context: who is acting, in which channel, on which
// attachment.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	base := otelgin.Middleware(serviceName)

	return func(c *gin.Context) {
		base(c)

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		if userID, ok := c.Get("user_id"); ok {
			if s, ok := userID.(string); ok {
				span.SetAttributes(attribute.String("user.id", s))
			}
		}

		if channelID := c.Param("channelId"); channelID != "" {
			span.SetAttributes(attribute.String("chat.channel_id", channelID))
		}
		if attachmentID := c.Param("attachmentId"); attachmentID != "" {
			span.SetAttributes(attribute.String("composer.attachment_id", attachmentID))
		}

		// Autocomplete endpoints carry their search token in q
		if q := c.Query("q"); q != "" {
			span.SetAttributes(attribute.String("query.q", q))
		}
		if limit := c.Query("limit"); limit != "" {
			span.SetAttributes(attribute.String("query.limit", limit))
		}

		for _, ginErr := range c.Errors {
			if ginErr.Err != nil {
				span.RecordError(ginErr.Err, trace.WithStackTrace(true))
				span.SetStatus(codes.Error, ginErr.Error())
			}
		}
	}
}
