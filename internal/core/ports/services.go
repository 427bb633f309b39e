package ports

import (
	"context"
	"time"

	"petwatch/internal/core/domain"
)

// ViewerChannel is one client's live-view attachment. Frames delivered on
// the channel are a strictly-ordered, possibly sparse subsequence of the
// acquisition order. The channel is closed when the viewer is detached or
// the broadcaster shuts down.
type ViewerChannel interface {
	ID() domain.ViewerID
	Frames() <-chan domain.Frame
	// Done is closed when the viewer has been detached, either explicitly
	// or by broadcaster shutdown.
	Done() <-chan struct{}
	// Detach removes the viewer from the broadcaster. Safe to call more
	// than once and after broadcaster shutdown.
	Detach()
}

// StartResult reports whether StartStream created a new session or matched
// an already-running one.
type StartResult struct {
	AlreadyRunning bool
	Status         domain.StreamStatus
}

// StopResult summarizes a StopStream call.
type StopResult struct {
	WasStreaming     bool
	RecordingStopped bool
	Recording        *domain.RecordingSession
}

// StreamController is the control-plane facade over the broadcaster. Every
// method is safe under concurrent invocation.
type StreamController interface {
	StartStream(ctx context.Context, cfg domain.CameraConfig) (StartResult, error)
	StopStream(ctx context.Context) (StopResult, error)
	AttachViewer(ctx context.Context) (ViewerChannel, error)
	StartRecording(ctx context.Context, maxDuration time.Duration) (*domain.RecordingSession, error)
	StopRecording(ctx context.Context) (*domain.RecordingSession, error)
	Status() domain.StreamStatus
}
