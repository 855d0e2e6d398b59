package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ApplicationMetrics tracks domain-specific metrics for the composer surface
// (sessions, sends, voice recordings, attachments, drafts)
type ApplicationMetrics struct {
	// Composer sessions
	ComposerSessionsOpened prometheus.CounterVec
	ComposerSessionsActive prometheus.GaugeVec

	// Message sends
	MessagesSentTotal   prometheus.CounterVec
	MessageSendDuration prometheus.HistogramVec

	// Voice recordings
	RecordingsTotal       prometheus.CounterVec
	RecordingDuration     prometheus.HistogramVec
	RecordingUploadsTotal prometheus.CounterVec

	// Attachments
	AttachmentsAddedTotal    prometheus.CounterVec
	AttachmentsRejectedTotal prometheus.CounterVec

	// Drafts
	DraftsSavedTotal    prometheus.CounterVec
	DraftsRestoredTotal prometheus.CounterVec
}

var (
	appInstance *ApplicationMetrics
	appOnce     sync.Once
)

// InitializeApplicationMetrics creates and registers all application metrics
func InitializeApplicationMetrics() *ApplicationMetrics {
	appOnce.Do(func() {
		appInstance = &ApplicationMetrics{
			ComposerSessionsOpened: counterVec("composer_sessions_opened_total",
				"Total number of composer sessions opened",
				"mode"), // create, edit, quote
			ComposerSessionsActive: gaugeVec("composer_sessions_active",
				"Number of currently live composer sessions"),

			MessagesSentTotal: counterVec("messages_sent_total",
				"Total number of messages sent through the composer",
				"status", "kind"),
			MessageSendDuration: histogramVec("message_send_duration_seconds",
				"Message send latency in seconds",
				[]float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
				"kind"),

			RecordingsTotal: counterVec("voice_recordings_total",
				"Total number of voice recordings by outcome",
				"outcome"), // confirmed, cancelled, failed
			RecordingDuration: histogramVec("voice_recording_duration_seconds",
				"Length of finished voice recordings in seconds",
				[]float64{1, 2, 5, 10, 30, 60, 120, 300}),
			RecordingUploadsTotal: counterVec("voice_recording_uploads_total",
				"Total voice recording CDN uploads",
				"status"),

			AttachmentsAddedTotal: counterVec("attachments_added_total",
				"Total attachments added to composer sessions",
				"kind"),
			AttachmentsRejectedTotal: counterVec("attachments_rejected_total",
				"Total attachments rejected by the composer",
				"reason"), // limit, size

			DraftsSavedTotal: counterVec("drafts_saved_total",
				"Total drafts persisted"),
			DraftsRestoredTotal: counterVec("drafts_restored_total",
				"Total drafts restored into sessions"),
		}
	})
	return appInstance
}

// App returns the global application metrics instance
func App() *ApplicationMetrics {
	if appInstance == nil {
		return InitializeApplicationMetrics()
	}
	return appInstance
}
