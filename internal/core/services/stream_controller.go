package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"petwatch/internal/core/domain"
	"petwatch/internal/core/ports"
	"petwatch/pkg/retry"
	"petwatch/pkg/utils"

	"go.uber.org/zap"
)

// RecorderFactory builds a fresh recorder for each recording session.
type RecorderFactory func() ports.Recorder

type streamController struct {
	broadcaster *Broadcaster
	newRecorder RecorderFactory
	repo        ports.RecordingRepository
	metrics     ports.MetricsCollector
	logger      *zap.SugaredLogger
	openRetry   retry.Config

	// mu is the single mutation lock: every state-changing control
	// operation holds it for the whole transition. Status and the frame
	// fan-out never take it.
	mu          sync.Mutex
	recTimer    *time.Timer
	activeRec   ports.Recorder
	maxDuration time.Duration

	// activePath is mirrored atomically so Status never waits on mu.
	activePath atomic.Value // string
}

func NewStreamController(
	broadcaster *Broadcaster,
	newRecorder RecorderFactory,
	repo ports.RecordingRepository,
	metrics ports.MetricsCollector,
	logger *zap.SugaredLogger,
) ports.StreamController {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	openRetry := retry.DefaultConfig()
	openRetry.MaxAttempts = 2
	openRetry.InitialDelay = 200 * time.Millisecond

	c := &streamController{
		broadcaster: broadcaster,
		newRecorder: newRecorder,
		repo:        repo,
		metrics:     metrics,
		logger:      logger,
		openRetry:   openRetry,
	}
	broadcaster.SetFatalHandler(c.handleFatal)
	return c
}

// StartStream is idempotent: starting while a session with a matching
// configuration is active succeeds and describes the existing session. A
// materially different configuration is rejected with ErrConfigConflict.
func (c *streamController) StartStream(ctx context.Context, cfg domain.CameraConfig) (ports.StartResult, error) {
	if err := cfg.Validate(); err != nil {
		return ports.StartResult{}, fmt.Errorf("invalid camera configuration: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broadcaster.State().Active() {
		current := c.broadcaster.Config()
		if !current.Matches(cfg) {
			return ports.StartResult{}, fmt.Errorf("%w: running %s@%dfps, requested %s@%dfps",
				domain.ErrConfigConflict,
				current.Resolution(), current.FrameRate,
				cfg.Resolution(), cfg.FrameRate,
			)
		}
		return ports.StartResult{
			AlreadyRunning: true,
			Status:         c.broadcaster.Status(),
		}, nil
	}

	if cfg.StorageEnabled {
		if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
			return ports.StartResult{}, fmt.Errorf("failed to create storage directory %s: %w", cfg.StorageDir, err)
		}
	}

	err := retry.Retry(ctx, c.openRetry, func() error {
		return c.broadcaster.Start(ctx, cfg)
	})
	if err != nil {
		return ports.StartResult{}, err
	}

	return ports.StartResult{
		AlreadyRunning: false,
		Status:         c.broadcaster.Status(),
	}, nil
}

// StopStream is idempotent: stopping an idle stream succeeds trivially. An
// active recording is finalized first with reason stream-stopped.
func (c *streamController) StopStream(ctx context.Context) (ports.StopResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopStreamLocked(ctx, domain.StopReasonStreamStopped), nil
}

func (c *streamController) stopStreamLocked(ctx context.Context, reason domain.StopReason) ports.StopResult {
	res := ports.StopResult{}

	if summary := c.stopRecordingLocked(ctx, reason); summary != nil {
		res.RecordingStopped = true
		res.Recording = summary
	}
	res.WasStreaming = c.broadcaster.Stop()
	return res
}

func (c *streamController) AttachViewer(ctx context.Context) (ports.ViewerChannel, error) {
	// Attach goes straight to the broadcaster: it must not wait behind a
	// slow control transition.
	return c.broadcaster.AttachViewer()
}

// StartRecording begins persisting the running stream to a new file. The
// optional maxDuration arms a timer independent of the acquisition loop, so
// the bound holds even when no frames are flowing.
func (c *streamController) StartRecording(ctx context.Context, maxDuration time.Duration) (*domain.RecordingSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.broadcaster.State().Active() {
		return nil, domain.ErrStreamNotRunning
	}
	cfg := c.broadcaster.Config()
	if !cfg.StorageEnabled {
		return nil, domain.ErrStorageDisabled
	}
	if c.activeRec != nil {
		return nil, domain.ErrRecordingActive
	}

	path := filepath.Join(cfg.StorageDir, recordingFilename(time.Now()))

	rec := c.newRecorder()
	if err := rec.Start(path, cfg.FrameRate); err != nil {
		return nil, err
	}
	if err := c.broadcaster.AttachRecorder(rec); err != nil {
		rec.Finalize(domain.StopReasonError)
		return nil, err
	}

	c.activeRec = rec
	c.activePath.Store(path)
	c.maxDuration = maxDuration
	c.metrics.RecordRecordingStarted()

	if maxDuration > 0 {
		c.recTimer = time.AfterFunc(maxDuration, c.handleDurationElapsed)
	}

	return &domain.RecordingSession{
		ID:          rec.ID(),
		Path:        path,
		StartedAt:   rec.StartedAt(),
		MaxDuration: maxDuration,
	}, nil
}

// StopRecording is an idempotent no-op when no recording is active: it
// returns a nil session and no error.
func (c *streamController) StopRecording(ctx context.Context) (*domain.RecordingSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopRecordingLocked(ctx, domain.StopReasonManual), nil
}

func (c *streamController) stopRecordingLocked(ctx context.Context, reason domain.StopReason) *domain.RecordingSession {
	if c.activeRec == nil {
		return nil
	}

	if c.recTimer != nil {
		c.recTimer.Stop()
		c.recTimer = nil
	}

	c.broadcaster.DetachRecorder()
	rec := c.activeRec
	c.activeRec = nil
	c.activePath.Store("")
	c.maxDuration = 0

	summary := rec.Finalize(reason)
	c.logger.Infow("recording finalized",
		"recording_id", summary.ID,
		"path", summary.Path,
		"duration", utils.FormatDuration(summary.Duration),
		"frames", summary.FrameCount,
		"reason", summary.StopReason,
	)
	c.metrics.RecordRecordingFinalized(summary)
	c.persistRecord(ctx, summary)
	return &summary
}

func (c *streamController) persistRecord(ctx context.Context, session domain.RecordingSession) {
	if c.repo == nil {
		return
	}

	record := &domain.RecordingRecord{
		ID:            session.ID,
		MediaPath:     session.Path,
		StartedAt:     session.StartedAt,
		DurationSec:   session.Duration.Seconds(),
		FrameCount:    session.FrameCount,
		FramesDropped: session.FramesDropped,
		StopReason:    session.StopReason,
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := c.repo.Save(saveCtx, record); err != nil {
		// Losing metadata does not invalidate the file on disk.
		c.logger.Errorw("failed to persist recording record",
			"recording_id", record.ID,
			"media_path", record.MediaPath,
			"error", err,
		)
	}
}

func (c *streamController) Status() domain.StreamStatus {
	status := c.broadcaster.Status()
	if status.RecordingActive {
		if path, ok := c.activePath.Load().(string); ok {
			status.CurrentRecording = path
		}
	}
	return status
}

// handleDurationElapsed fires from the recording timer goroutine.
func (c *streamController) handleDurationElapsed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeRec == nil {
		return
	}
	c.logger.Infow("recording duration elapsed", "max_duration", c.maxDuration)
	c.stopRecordingLocked(context.Background(), domain.StopReasonDurationElapsed)
}

// handleFatal fires when the broadcaster escalates consecutive capture
// failures. The recording, if any, is finalized with reason error; the
// recording lifetime never outlives its stream.
func (c *streamController) handleFatal() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Error("stream session fatally degraded, stopping")
	c.stopStreamLocked(context.Background(), domain.StopReasonError)
}

func recordingFilename(t time.Time) string {
	return fmt.Sprintf("recording_%s.mjpeg", t.Format("20060102_150405"))
}
