package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BusinessEvents provides helper methods for tracing domain-specific operations
// These are higher-level events beyond HTTP/DB/Cache tracing (e.g., "user sent a message", "recording confirmed")
type BusinessEvents struct {
	tracer trace.Tracer
}

// NewBusinessEvents creates a new business events tracer
func NewBusinessEvents() *BusinessEvents {
	return &BusinessEvents{
		tracer: otel.Tracer("business-events"),
	}
}

// ============================================================================
// COMPOSER SESSIONS
// ============================================================================

// ComposerEventAttrs attributes for composer session operations
type ComposerEventAttrs struct {
	SessionID       string
	ChannelID       string
	AttachmentCount int64
	TextLength      int64
	DraftRestored   bool
}

// TraceOpenSession creates a span for composer session creation
func (be *BusinessEvents) TraceOpenSession(ctx context.Context, attrs ComposerEventAttrs) (context.Context, trace.Span) {
	ctx, span := be.tracer.Start(ctx, "composer.open_session",
		trace.WithAttributes(
			attribute.String("composer.session_id", attrs.SessionID),
			attribute.String("chat.channel_id", attrs.ChannelID),
		),
	)

	if attrs.DraftRestored {
		span.SetAttributes(attribute.Bool("composer.draft_restored", true))
	}

	return ctx, span
}

// TraceSendMessage creates a span for a message send through the composer
func (be *BusinessEvents) TraceSendMessage(ctx context.Context, attrs ComposerEventAttrs) (context.Context, trace.Span) {
	ctx, span := be.tracer.Start(ctx, "composer.send_message",
		trace.WithAttributes(
			attribute.String("composer.session_id", attrs.SessionID),
			attribute.String("chat.channel_id", attrs.ChannelID),
			attribute.Int64("composer.attachment_count", attrs.AttachmentCount),
			attribute.Int64("composer.text_length", attrs.TextLength),
		),
	)
	return ctx, span
}

// TraceAttachment creates a span for attachment add/remove operations
func (be *BusinessEvents) TraceAttachment(ctx context.Context, action string, kind string, sessionID string) (context.Context, trace.Span) {
	ctx, span := be.tracer.Start(ctx, "composer.attachment_"+action,
		trace.WithAttributes(
			attribute.String("attachment.action", action),
			attribute.String("attachment.kind", kind),
			attribute.String("composer.session_id", sessionID),
		),
	)
	return ctx, span
}

// ============================================================================
// VOICE RECORDINGS
// ============================================================================

// RecordingEventAttrs attributes for voice recording operations
type RecordingEventAttrs struct {
	SessionID  string
	DurationMS int64
	SizeBytes  int64
	Outcome    string // "confirmed", "cancelled", "failed"
	Locked     bool
}

// TraceRecording creates a span for a voice recording lifecycle event
func (be *BusinessEvents) TraceRecording(ctx context.Context, event string, attrs RecordingEventAttrs) (context.Context, trace.Span) {
	ctx, span := be.tracer.Start(ctx, "recording."+event,
		trace.WithAttributes(
			attribute.String("composer.session_id", attrs.SessionID),
		),
	)

	if attrs.DurationMS > 0 {
		span.SetAttributes(attribute.Int64("recording.duration_ms", attrs.DurationMS))
	}
	if attrs.SizeBytes > 0 {
		span.SetAttributes(attribute.Int64("recording.size_bytes", attrs.SizeBytes))
	}
	if attrs.Outcome != "" {
		span.SetAttributes(attribute.String("recording.outcome", attrs.Outcome))
	}
	if attrs.Locked {
		span.SetAttributes(attribute.Bool("recording.locked", true))
	}

	return ctx, span
}

// TraceVoiceUpload creates a span for voice note upload operations
func (be *BusinessEvents) TraceVoiceUpload(ctx context.Context, userID string, sizeBytes int64) (context.Context, trace.Span) {
	ctx, span := be.tracer.Start(ctx, "recording.upload",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int64("file.size_bytes", sizeBytes),
		),
	)
	return ctx, span
}

// ============================================================================
// DRAFTS
// ============================================================================

// TraceDraft creates a span for draft save/load/delete operations
func (be *BusinessEvents) TraceDraft(ctx context.Context, operation string, userID string, channelID string) (context.Context, trace.Span) {
	ctx, span := be.tracer.Start(ctx, "draft."+operation,
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("chat.channel_id", channelID),
		),
	)
	return ctx, span
}

// ============================================================================
// MENTION AUTOCOMPLETE
// ============================================================================

// AutocompleteEventAttrs attributes for mention autocomplete operations
type AutocompleteEventAttrs struct {
	Token       string
	ResultCount int64
	FromCache   bool
}

// TraceAutocomplete creates a span for mention autocomplete lookups
func (be *BusinessEvents) TraceAutocomplete(ctx context.Context, attrs AutocompleteEventAttrs) (context.Context, trace.Span) {
	ctx, span := be.tracer.Start(ctx, "directory.autocomplete",
		trace.WithAttributes(
			attribute.String("directory.token", attrs.Token),
			attribute.Int64("directory.result_count", attrs.ResultCount),
		),
	)

	if attrs.FromCache {
		span.SetAttributes(attribute.Bool("directory.from_cache", true))
	}

	return ctx, span
}

// ============================================================================
// EXTERNAL API CALLS
// ============================================================================

// TraceExternalAPI creates a span for external API calls
func (be *BusinessEvents) TraceExternalAPI(ctx context.Context, service string, operation string) (context.Context, trace.Span) {
	ctx, span := be.tracer.Start(ctx, "external."+service+"."+operation,
		trace.WithAttributes(
			attribute.String("external.service", service),
			attribute.String("external.operation", operation),
		),
	)
	return ctx, span
}

// RecordExternalAPIError records an error in an external API span
func RecordExternalAPIError(span trace.Span, err error, retryable bool) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("external.error.retryable", retryable))
	}
}

// ============================================================================
// HELPER: Global instance for convenient access
// ============================================================================

var globalBusinessEvents *BusinessEvents

// GetBusinessEvents returns the global business events tracer
// Initialize with init or early startup if needed
func GetBusinessEvents() *BusinessEvents {
	if globalBusinessEvents == nil {
		globalBusinessEvents = NewBusinessEvents()
	}
	return globalBusinessEvents
}
