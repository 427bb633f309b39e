package ports

import "petwatch/internal/core/domain"

// MetricsCollector receives broadcaster and recorder events. Implementations
// must be safe for concurrent use and must never block.
type MetricsCollector interface {
	RecordFrameAcquired()
	RecordFramesServed(n int)
	RecordFrameDropped(sink string)
	RecordCaptureError()
	RecordEncodeDuration(seconds float64)
	RecordViewerAttached()
	RecordViewerDetached()
	RecordStateChange(state domain.StreamState)
	RecordRecordingStarted()
	RecordRecordingFinalized(session domain.RecordingSession)
}
