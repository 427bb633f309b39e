package domain

import "time"

// StopReason explains why a recording session was finalized.
type StopReason string

const (
	StopReasonManual          StopReason = "manual-stop"
	StopReasonDurationElapsed StopReason = "duration-elapsed"
	StopReasonStreamStopped   StopReason = "stream-stopped"
	StopReasonError           StopReason = "error"
)

// RecordingSession is the summary of one bounded episode of persisting
// frames to a video file, produced when the recorder is finalized.
type RecordingSession struct {
	ID            RecordingID   `json:"id"`
	Path          string        `json:"path"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	MaxDuration   time.Duration `json:"max_duration,omitempty"`
	FrameCount    uint64        `json:"frames"`
	FramesDropped uint64        `json:"frames_dropped"`
	StopReason    StopReason    `json:"stop_reason"`
	Degraded      bool          `json:"degraded,omitempty"`
}

// RecordingRecord is the persisted artifact metadata handed to the event
// store after finalization. Event classification happens elsewhere; this
// core only produces the artifact.
type RecordingRecord struct {
	ID            RecordingID `json:"id"`
	MediaPath     string      `json:"media_path"`
	StartedAt     time.Time   `json:"started_at"`
	DurationSec   float64     `json:"duration"`
	FrameCount    uint64      `json:"frame_count"`
	FramesDropped uint64      `json:"frames_dropped"`
	StopReason    StopReason  `json:"stop_reason"`
}
