package ports

import (
	"context"
	"image"
	"time"

	"petwatch/internal/core/domain"
)

// FrameSource abstracts one physical or simulated camera device. A source is
// exclusively owned by a single acquisition loop between Open and Close; none
// of its methods are safe for concurrent use.
type FrameSource interface {
	// Open claims the device. Returns domain.ErrDeviceUnavailable (possibly
	// wrapped) when the device cannot be claimed.
	Open(ctx context.Context) error

	// Acquire blocks until the next raw frame is available, bounded by the
	// deadline on ctx. A stall or device error surfaces as
	// domain.ErrCaptureFailed so the caller can retry or escalate.
	Acquire(ctx context.Context) (image.Image, error)

	// Close releases the device. Safe to call multiple times.
	Close() error
}

// FrameEncoder converts a raw frame into compressed bytes for transport.
// Implementations must be pure and stateless.
type FrameEncoder interface {
	Encode(frame image.Image, quality int) ([]byte, error)
}

// Recorder persists a sequence of encoded frames as a time-bounded video
// file. Write must never block the caller beyond a bounded slice of the
// frame interval; a recorder that cannot keep up drops frames instead of
// applying backpressure.
type Recorder interface {
	Start(path string, frameRate int) error
	ID() domain.RecordingID
	Write(frame domain.Frame) error
	// Finalize flushes and closes the file. Idempotent; the first call wins
	// and later calls return the same summary.
	Finalize(reason domain.StopReason) domain.RecordingSession
	StartedAt() time.Time
}
