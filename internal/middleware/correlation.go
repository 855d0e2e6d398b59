package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/trace"
)

// CorrelationMiddleware propagates a correlation ID across the request.
// Unlike the request ID, the correlation ID survives across multiple
// requests of one business transaction (a client retrying a send reuses
// it). Runs after RequestIDMiddleware, which provides the fallback.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			if reqID, exists := c.Get("request_id"); exists {
				if s, ok := reqID.(string); ok {
					correlationID = s
				}
			}
		}

		c.Set("correlation_id", correlationID)
		c.Header("X-Correlation-ID", correlationID)

		if correlationID == "" {
			c.Next()
			return
		}

		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			span.SetAttributes(attribute.String("trace.correlation_id", correlationID))
		}

		// Baggage carries the ID into background work spawned from this
		// request (voice note encodes, draft writes).
		ctx := c.Request.Context()
		if member, err := baggage.NewMember("correlation_id", correlationID); err == nil {
			if bag, err := baggage.New(member); err == nil {
				ctx = baggage.ContextWithBaggage(ctx, bag)
			}
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetCorrelationIDFromContext reads the correlation ID out of baggage.
func GetCorrelationIDFromContext(ctx context.Context) string {
	for _, member := range baggage.FromContext(ctx).Members() {
		if member.Key() == "correlation_id" {
			return member.Value()
		}
	}
	return ""
}
