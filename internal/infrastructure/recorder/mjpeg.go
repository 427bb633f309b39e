package recorder

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"petwatch/internal/core/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MJPEGRecorder persists encoded frames as a concatenated-JPEG (MJPEG) video
// file. Writes are decoupled from the acquisition loop through a bounded
// queue: when storage cannot keep up, frames are dropped and counted rather
// than backpressuring the broadcaster.
type MJPEGRecorder struct {
	logger    *zap.SugaredLogger
	queueSize int

	mu        sync.Mutex
	id        domain.RecordingID
	path      string
	file      *os.File
	w         *bufio.Writer
	queue     chan domain.Frame
	done      chan struct{}
	startedAt time.Time
	finalized bool
	summary   domain.RecordingSession

	frameCount    uint64
	framesDropped uint64
	degraded      uint32
}

func NewMJPEGRecorder(queueSize int, logger *zap.SugaredLogger) *MJPEGRecorder {
	if queueSize <= 0 {
		queueSize = 32
	}
	return &MJPEGRecorder{
		logger:    logger,
		queueSize: queueSize,
	}
}

func (r *MJPEGRecorder) Start(path string, frameRate int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		return fmt.Errorf("recorder already started for %s", r.path)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open recording file %s: %w", path, err)
	}

	r.id = domain.RecordingID(uuid.NewString())
	r.path = path
	r.file = file
	r.w = bufio.NewWriterSize(file, 256*1024)
	r.queue = make(chan domain.Frame, r.queueSize)
	r.done = make(chan struct{})
	r.startedAt = time.Now()

	go r.writeLoop(r.queue, r.done)

	r.logger.Infow("recording started",
		"recording_id", r.id,
		"path", path,
		"frame_rate", frameRate,
	)
	return nil
}

// Write enqueues one frame. It never blocks beyond the queue send attempt;
// a full queue drops the frame. The send happens under r.mu: Finalize marks
// finalized under the same mutex before closing the queue, so a send can
// never race the close.
func (r *MJPEGRecorder) Write(frame domain.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized || r.queue == nil {
		return fmt.Errorf("recorder not accepting frames")
	}

	select {
	case r.queue <- frame:
		return nil
	default:
		atomic.AddUint64(&r.framesDropped, 1)
		return nil
	}
}

func (r *MJPEGRecorder) writeLoop(queue <-chan domain.Frame, done chan<- struct{}) {
	defer close(done)

	for frame := range queue {
		if _, err := r.w.Write(frame.Data); err != nil {
			// A failed write degrades the recording but never the stream.
			if atomic.CompareAndSwapUint32(&r.degraded, 0, 1) {
				r.logger.Errorw("recording write failed, marking degraded",
					"recording_id", r.id,
					"error", err,
				)
			}
			atomic.AddUint64(&r.framesDropped, 1)
			continue
		}
		atomic.AddUint64(&r.frameCount, 1)
	}
}

// Finalize closes the queue, flushes and closes the file, and returns the
// session summary. The first call wins; repeated calls return the same
// summary.
func (r *MJPEGRecorder) Finalize(reason domain.StopReason) domain.RecordingSession {
	r.mu.Lock()
	if r.finalized {
		summary := r.summary
		r.mu.Unlock()
		return summary
	}
	r.finalized = true
	queue := r.queue
	done := r.done
	r.mu.Unlock()

	if queue != nil {
		close(queue)
		<-done
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.w != nil {
		if err := r.w.Flush(); err != nil {
			r.logger.Errorw("failed to flush recording", "path", r.path, "error", err)
		}
	}
	if r.file != nil {
		if err := r.file.Sync(); err != nil {
			r.logger.Errorw("failed to sync recording file", "path", r.path, "error", err)
		}
		if err := r.file.Close(); err != nil {
			r.logger.Errorw("failed to close recording file", "path", r.path, "error", err)
		}
	}

	r.summary = domain.RecordingSession{
		ID:            r.id,
		Path:          r.path,
		StartedAt:     r.startedAt,
		Duration:      time.Since(r.startedAt),
		FrameCount:    atomic.LoadUint64(&r.frameCount),
		FramesDropped: atomic.LoadUint64(&r.framesDropped),
		StopReason:    reason,
		Degraded:      atomic.LoadUint32(&r.degraded) == 1,
	}

	r.logger.Infow("recording finalized",
		"recording_id", r.id,
		"path", r.path,
		"frames", r.summary.FrameCount,
		"frames_dropped", r.summary.FramesDropped,
		"duration", r.summary.Duration,
		"reason", reason,
	)
	return r.summary
}

func (r *MJPEGRecorder) ID() domain.RecordingID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

func (r *MJPEGRecorder) StartedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startedAt
}
