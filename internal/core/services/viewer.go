package services

import (
	"sync"

	"petwatch/internal/core/domain"

	"github.com/google/uuid"
)

// viewerChannel is one HTTP client's live-view attachment. Frames flow from
// the acquisition loop into a bounded queue; when the consumer falls behind,
// the oldest unconsumed frame is dropped so the stream favors recency.
type viewerChannel struct {
	id     domain.ViewerID
	frames chan domain.Frame
	done   chan struct{}

	detachOnce sync.Once
	doneOnce   sync.Once
	detachFn   func(domain.ViewerID)
}

func newViewerChannel(queueSize int, detachFn func(domain.ViewerID)) *viewerChannel {
	return &viewerChannel{
		id:       domain.ViewerID(uuid.NewString()),
		frames:   make(chan domain.Frame, queueSize),
		done:     make(chan struct{}),
		detachFn: detachFn,
	}
}

func (v *viewerChannel) ID() domain.ViewerID {
	return v.id
}

func (v *viewerChannel) Frames() <-chan domain.Frame {
	return v.frames
}

func (v *viewerChannel) Done() <-chan struct{} {
	return v.done
}

// Detach removes the viewer from the broadcaster. Safe to call repeatedly
// and after broadcaster shutdown.
func (v *viewerChannel) Detach() {
	v.detachOnce.Do(func() {
		v.detachFn(v.id)
	})
}

// markDone signals the consumer without closing the frame channel; the
// acquisition loop may still hold a snapshot containing this viewer.
func (v *viewerChannel) markDone() {
	v.doneOnce.Do(func() {
		close(v.done)
	})
}

// shutdown is called by the broadcaster after the acquisition loop has
// exited, when closing the frame channel is safe.
func (v *viewerChannel) shutdown() {
	v.markDone()
	close(v.frames)
}

// offer enqueues a frame, evicting the oldest queued frame when the queue
// is full. Reports whether an eviction happened.
func (v *viewerChannel) offer(frame domain.Frame) bool {
	select {
	case v.frames <- frame:
		return false
	default:
	}

	// Queue full: drop the oldest unconsumed frame, then retry once. The
	// consumer may have drained concurrently, so the retry can still fail;
	// in that case the new frame is the one dropped.
	select {
	case <-v.frames:
	default:
	}
	select {
	case v.frames <- frame:
	default:
	}
	return true
}
