package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"petwatch/internal/core/domain"
	"petwatch/internal/core/ports"

	"go.uber.org/zap"
)

// BroadcasterOptions tunes the acquisition loop.
type BroadcasterOptions struct {
	// MaxCaptureFailures is the number of consecutive capture errors
	// tolerated before the session is stopped as fatally degraded.
	MaxCaptureFailures int
	// ViewerQueueSize bounds each viewer's frame queue; the oldest
	// unconsumed frame is dropped when a consumer falls behind.
	ViewerQueueSize int
	// AcquireTimeout bounds a single Acquire call so a hardware stall
	// surfaces as a capture error instead of blocking the loop.
	AcquireTimeout time.Duration
}

func (o *BroadcasterOptions) applyDefaults() {
	if o.MaxCaptureFailures <= 0 {
		o.MaxCaptureFailures = 3
	}
	if o.ViewerQueueSize <= 0 {
		o.ViewerQueueSize = 8
	}
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = 2 * time.Second
	}
}

// Broadcaster owns the FrameSource and runs the single acquisition loop for
// one camera, fanning encoded frames out to any number of viewer channels
// and at most one recorder. Only one loop instance can exist at a time;
// starting while not idle is rejected.
type Broadcaster struct {
	source  ports.FrameSource
	encoder ports.FrameEncoder
	metrics ports.MetricsCollector
	logger  *zap.SugaredLogger
	opts    BroadcasterOptions

	state int32 // domain.StreamState

	// lifecycle guards start/stop transitions only; it is never held while
	// the loop is acquiring or fanning out.
	lifecycle  sync.Mutex
	cfg        domain.CameraConfig
	loopCancel context.CancelFunc
	loopDone   chan struct{}

	// sinks guards the viewer set and the attached recorder. The per-frame
	// fan-out takes only a brief read lock to snapshot the set.
	sinks    sync.RWMutex
	viewers  map[domain.ViewerID]*viewerChannel
	recorder ports.Recorder

	frameSeq      uint64
	framesServed  uint64
	framesDropped uint64
	captureErrors uint64

	// onFatal is invoked from a fresh goroutine when consecutive capture
	// failures exceed the bound. Set once before Start.
	onFatal func()
}

func NewBroadcaster(
	source ports.FrameSource,
	encoder ports.FrameEncoder,
	metrics ports.MetricsCollector,
	logger *zap.SugaredLogger,
	opts BroadcasterOptions,
) *Broadcaster {
	opts.applyDefaults()
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Broadcaster{
		source:  source,
		encoder: encoder,
		metrics: metrics,
		logger:  logger,
		opts:    opts,
		viewers: make(map[domain.ViewerID]*viewerChannel),
	}
}

// SetFatalHandler registers the escalation callback. Must be called before
// the first Start.
func (b *Broadcaster) SetFatalHandler(fn func()) {
	b.onFatal = fn
}

func (b *Broadcaster) State() domain.StreamState {
	return domain.StreamState(atomic.LoadInt32(&b.state))
}

func (b *Broadcaster) setState(s domain.StreamState) {
	atomic.StoreInt32(&b.state, int32(s))
	b.metrics.RecordStateChange(s)
}

// Config returns the configuration of the current session. Only meaningful
// while the session is active.
func (b *Broadcaster) Config() domain.CameraConfig {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()
	return b.cfg
}

// Start opens the frame source and launches the acquisition loop. Returns
// domain.ErrStreamBusy when the broadcaster is not idle.
func (b *Broadcaster) Start(ctx context.Context, cfg domain.CameraConfig) error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	if st := b.State(); st != domain.StateIdle {
		return fmt.Errorf("%w: state %s", domain.ErrStreamBusy, st)
	}
	b.setState(domain.StateStarting)

	if err := b.source.Open(ctx); err != nil {
		b.setState(domain.StateIdle)
		return err
	}

	b.cfg = cfg
	atomic.StoreUint64(&b.frameSeq, 0)
	atomic.StoreUint64(&b.framesServed, 0)
	atomic.StoreUint64(&b.framesDropped, 0)
	atomic.StoreUint64(&b.captureErrors, 0)

	loopCtx, cancel := context.WithCancel(context.Background())
	b.loopCancel = cancel
	b.loopDone = make(chan struct{})
	b.setState(domain.StateRunning)

	go b.run(loopCtx, cfg, b.loopDone)

	b.logger.Infow("acquisition loop started",
		"resolution", cfg.Resolution(),
		"frame_rate", cfg.FrameRate,
		"quality", cfg.Quality,
	)
	return nil
}

// Stop terminates the acquisition loop, detaches and closes all viewers,
// and closes the frame source. Idempotent: stopping an idle broadcaster is
// a no-op and reports false.
func (b *Broadcaster) Stop() bool {
	b.lifecycle.Lock()

	st := b.State()
	if st == domain.StateIdle || st == domain.StateStopping {
		b.lifecycle.Unlock()
		return false
	}
	b.setState(domain.StateStopping)
	cancel := b.loopCancel
	done := b.loopDone
	b.loopCancel = nil
	b.loopDone = nil
	b.lifecycle.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	// The loop has exited; no more sends can race with channel close.
	b.sinks.Lock()
	for id, v := range b.viewers {
		v.shutdown()
		delete(b.viewers, id)
		b.metrics.RecordViewerDetached()
	}
	b.recorder = nil
	b.sinks.Unlock()

	if err := b.source.Close(); err != nil {
		b.logger.Errorw("failed to close frame source", "error", err)
	}

	b.lifecycle.Lock()
	b.setState(domain.StateIdle)
	b.lifecycle.Unlock()

	b.logger.Info("acquisition loop stopped")
	return true
}

// AttachViewer adds a viewer channel to the fan-out set. Fails unless the
// session is running or degraded.
func (b *Broadcaster) AttachViewer() (ports.ViewerChannel, error) {
	b.sinks.Lock()
	defer b.sinks.Unlock()

	if !b.State().Active() {
		return nil, domain.ErrStreamNotRunning
	}

	v := newViewerChannel(b.opts.ViewerQueueSize, b.detachViewer)
	b.viewers[v.id] = v
	b.metrics.RecordViewerAttached()
	b.logger.Debugw("viewer attached", "viewer_id", v.id, "viewers", len(b.viewers))
	return v, nil
}

func (b *Broadcaster) detachViewer(id domain.ViewerID) {
	b.sinks.Lock()
	defer b.sinks.Unlock()

	if v, ok := b.viewers[id]; ok {
		delete(b.viewers, id)
		v.markDone()
		b.metrics.RecordViewerDetached()
		b.logger.Debugw("viewer detached", "viewer_id", id, "viewers", len(b.viewers))
	}
}

// AttachRecorder attaches the single recorder sink. The caller owns the
// recorder's lifecycle; the broadcaster only feeds it frames.
func (b *Broadcaster) AttachRecorder(rec ports.Recorder) error {
	b.sinks.Lock()
	defer b.sinks.Unlock()

	if !b.State().Active() {
		return domain.ErrStreamNotRunning
	}
	if b.recorder != nil {
		return domain.ErrRecordingActive
	}
	b.recorder = rec
	return nil
}

// DetachRecorder removes and returns the attached recorder, or nil.
func (b *Broadcaster) DetachRecorder() ports.Recorder {
	b.sinks.Lock()
	defer b.sinks.Unlock()

	rec := b.recorder
	b.recorder = nil
	return rec
}

// Recorder returns the currently attached recorder without detaching it.
func (b *Broadcaster) Recorder() ports.Recorder {
	b.sinks.RLock()
	defer b.sinks.RUnlock()
	return b.recorder
}

// Status builds a snapshot without blocking on the acquisition loop.
func (b *Broadcaster) Status() domain.StreamStatus {
	st := b.State()

	b.sinks.RLock()
	viewerCount := len(b.viewers)
	recording := b.recorder != nil
	b.sinks.RUnlock()

	status := domain.StreamStatus{
		State:           st,
		StateName:       st.String(),
		Streaming:       st.Active(),
		Initialized:     st != domain.StateIdle,
		ViewerCount:     viewerCount,
		RecordingActive: recording,
		FramesServed:    atomic.LoadUint64(&b.framesServed),
		FramesDropped:   atomic.LoadUint64(&b.framesDropped),
		CaptureErrors:   atomic.LoadUint64(&b.captureErrors),
	}

	if st.Active() {
		cfg := b.Config()
		status.Resolution = cfg.Resolution()
		status.FrameRate = cfg.FrameRate
		status.StorageEnabled = cfg.StorageEnabled
	}
	return status
}

// run is the acquisition loop: acquire, encode, fan out, pace. It is the
// only goroutine that touches the frame source between Open and Close.
func (b *Broadcaster) run(ctx context.Context, cfg domain.CameraConfig, done chan<- struct{}) {
	defer close(done)

	interval := cfg.FrameInterval()
	consecutiveFailures := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frameStart := time.Now()

		acquireCtx, cancel := context.WithTimeout(ctx, b.opts.AcquireTimeout)
		raw, err := b.source.Acquire(acquireCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return
			}

			consecutiveFailures++
			atomic.AddUint64(&b.captureErrors, 1)
			b.metrics.RecordCaptureError()

			if b.State() == domain.StateRunning {
				b.setState(domain.StateDegraded)
				b.logger.Warnw("capture error, session degraded",
					"error", err,
					"consecutive_failures", consecutiveFailures,
				)
			}

			if consecutiveFailures >= b.opts.MaxCaptureFailures {
				b.logger.Errorw("consecutive capture failures exceeded bound, stopping session",
					"failures", consecutiveFailures,
					"bound", b.opts.MaxCaptureFailures,
				)
				go b.fatal()
				return
			}

			// Brief backoff so a dead device does not spin the loop.
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return
			}
			continue
		}

		if consecutiveFailures > 0 {
			consecutiveFailures = 0
			if b.State() == domain.StateDegraded {
				b.setState(domain.StateRunning)
				b.logger.Info("capture recovered, session running")
			}
		}

		encodeStart := time.Now()
		data, err := b.encoder.Encode(raw, cfg.Quality)
		b.metrics.RecordEncodeDuration(time.Since(encodeStart).Seconds())
		if err != nil {
			// Encoding errors are local to one frame.
			b.logger.Errorw("frame encoding failed", "error", err)
			atomic.AddUint64(&b.framesDropped, 1)
			continue
		}

		frame := domain.Frame{
			Seq:       atomic.AddUint64(&b.frameSeq, 1),
			Timestamp: frameStart,
			Data:      data,
		}
		b.metrics.RecordFrameAcquired()
		b.fanOut(frame)

		// Maintain the target frame rate despite variable encode time.
		if wait := interval - time.Since(frameStart); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return
			}
		}
	}
}

// fanOut delivers one frame to every attached viewer and to the recorder.
// The sink set is snapshotted under a read lock so a concurrent attach or
// detach never stalls delivery.
func (b *Broadcaster) fanOut(frame domain.Frame) {
	b.sinks.RLock()
	viewers := make([]*viewerChannel, 0, len(b.viewers))
	for _, v := range b.viewers {
		viewers = append(viewers, v)
	}
	rec := b.recorder
	b.sinks.RUnlock()

	served := 0
	for _, v := range viewers {
		dropped := v.offer(frame)
		if dropped {
			atomic.AddUint64(&b.framesDropped, 1)
			b.metrics.RecordFrameDropped("viewer")
		}
		served++
	}
	if served > 0 {
		atomic.AddUint64(&b.framesServed, uint64(served))
		b.metrics.RecordFramesServed(served)
	}

	if rec != nil {
		if err := rec.Write(frame); err != nil {
			// The recorder was finalized under us; the controller will
			// detach it shortly.
			b.logger.Debugw("recorder rejected frame", "error", err)
		}
	}
}

func (b *Broadcaster) fatal() {
	if b.onFatal != nil {
		b.onFatal()
		return
	}
	b.Stop()
}
