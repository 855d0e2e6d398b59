package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// clientSpan starts a client-kind span named "<system>.<operation>" with the
// operation recorded under the system's attribute namespace.
func clientSpan(ctx context.Context, system, operation string) (context.Context, trace.Span) {
	return otel.Tracer(system).Start(ctx, system+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(system+".operation", operation),
		),
	)
}

// strAttr sets "<prefix>.<name>" if attrs carries a non-empty string.
func strAttr(span trace.Span, attrs map[string]interface{}, prefix, name string) {
	if v, ok := attrs[name].(string); ok && v != "" {
		span.SetAttributes(attribute.String(prefix+"."+name, v))
	}
}

// TraceStreamCall creates a span for a Stream chat API call
// (send_message, update_message, query_users).
func TraceStreamCall(ctx context.Context, operation string, attrs map[string]interface{}) (context.Context, trace.Span) {
	ctx, span := clientSpan(ctx, "stream", operation)

	strAttr(span, attrs, "stream", "user_id")
	strAttr(span, attrs, "stream", "channel_id")
	strAttr(span, attrs, "stream", "message_id")
	if limit, ok := attrs["limit"].(int); ok && limit > 0 {
		span.SetAttributes(attribute.Int("stream.limit", limit))
	}

	return ctx, span
}

// TraceGiphyCall creates a span for a GIPHY API call (translate, search).
func TraceGiphyCall(ctx context.Context, operation string, attrs map[string]interface{}) (context.Context, trace.Span) {
	ctx, span := clientSpan(ctx, "giphy", operation)

	if phrase, ok := attrs["phrase"].(string); ok && phrase != "" {
		// Long phrases would explode attribute cardinality
		if len(phrase) > 200 {
			phrase = phrase[:200] + "..."
		}
		span.SetAttributes(attribute.String("giphy.phrase", phrase))
	}
	strAttr(span, attrs, "giphy", "gif_id")

	return ctx, span
}

// TraceS3Call creates a span for an S3 operation
// (put_object, delete_object, head_bucket).
func TraceS3Call(ctx context.Context, operation string, attrs map[string]interface{}) (context.Context, trace.Span) {
	ctx, span := clientSpan(ctx, "s3", operation)

	strAttr(span, attrs, "s3", "bucket")
	strAttr(span, attrs, "s3", "key")
	strAttr(span, attrs, "s3", "content_type")
	if sizeBytes, ok := attrs["size_bytes"].(int64); ok && sizeBytes > 0 {
		span.SetAttributes(attribute.Int64("s3.size_bytes", sizeBytes))
	}

	return ctx, span
}

// RecordServiceError marks the span failed and records the error.
func RecordServiceError(span trace.Span, service string, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err, trace.WithStackTrace(true))
		span.SetAttributes(attribute.String("error.type", "service_error"))
	}
}

// RecordServiceSuccess marks the span OK with optional result attributes.
func RecordServiceSuccess(span trace.Span, attrs map[string]interface{}) {
	if itemCount, ok := attrs["item_count"].(int); ok {
		span.SetAttributes(attribute.Int("result.item_count", itemCount))
	}
	if durationMs, ok := attrs["duration_ms"].(int64); ok {
		span.SetAttributes(attribute.Int64("result.duration_ms", durationMs))
	}
	if cached, ok := attrs["cached"].(bool); ok && cached {
		span.SetAttributes(attribute.Bool("result.from_cache", true))
	}

	span.SetStatus(codes.Ok, "")
}

// SetUserContext tags the span with the acting user and channel.
func SetUserContext(span trace.Span, userID string, channelID string) {
	if userID != "" {
		span.SetAttributes(attribute.String("user.id", userID))
	}
	if channelID != "" {
		span.SetAttributes(attribute.String("chat.channel_id", channelID))
	}
}
