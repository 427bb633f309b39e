package recorder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"petwatch/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var jpegPayload = []byte{0xff, 0xd8, 0x01, 0x02, 0x03, 0xff, 0xd9}

func newTestRecorder(queueSize int) *MJPEGRecorder {
	return NewMJPEGRecorder(queueSize, zap.NewNop().Sugar())
}

func writeFrames(t *testing.T, r *MJPEGRecorder, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		err := r.Write(domain.Frame{
			Seq:       uint64(i),
			Timestamp: time.Now(),
			Data:      jpegPayload,
		})
		require.NoError(t, err)
	}
}

func TestRecorderWritesConcatenatedJPEGs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording.mjpeg")
	r := newTestRecorder(16)

	require.NoError(t, r.Start(path, 15))
	writeFrames(t, r, 5)

	summary := r.Finalize(domain.StopReasonManual)
	assert.Equal(t, domain.StopReasonManual, summary.StopReason)
	assert.EqualValues(t, 5, summary.FrameCount)
	assert.Equal(t, path, summary.Path)
	assert.False(t, summary.Degraded)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 5*len(jpegPayload))
}

func TestRecorderStartRefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording.mjpeg")
	require.NoError(t, os.WriteFile(path, []byte("existing"), 0o644))

	r := newTestRecorder(16)
	err := r.Start(path, 15)
	require.Error(t, err)
}

func TestRecorderStartTwiceFails(t *testing.T) {
	dir := t.TempDir()
	r := newTestRecorder(16)

	require.NoError(t, r.Start(filepath.Join(dir, "a.mjpeg"), 15))
	defer r.Finalize(domain.StopReasonManual)

	err := r.Start(filepath.Join(dir, "b.mjpeg"), 15)
	require.Error(t, err)
}

func TestRecorderFinalizeIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording.mjpeg")
	r := newTestRecorder(16)

	require.NoError(t, r.Start(path, 15))
	writeFrames(t, r, 3)

	first := r.Finalize(domain.StopReasonDurationElapsed)
	second := r.Finalize(domain.StopReasonManual)

	assert.Equal(t, first, second, "repeated finalize must return the first summary")
	assert.Equal(t, domain.StopReasonDurationElapsed, second.StopReason)
}

func TestRecorderWriteAfterFinalizeRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording.mjpeg")
	r := newTestRecorder(16)

	require.NoError(t, r.Start(path, 15))
	r.Finalize(domain.StopReasonManual)

	err := r.Write(domain.Frame{Seq: 1, Data: jpegPayload})
	require.Error(t, err)
}

func TestRecorderDropsWhenQueueFull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording.mjpeg")
	r := newTestRecorder(1)

	require.NoError(t, r.Start(path, 15))

	// Flood far beyond the queue depth; Write must never block and the
	// overflow must be counted, not written.
	for i := 0; i < 500; i++ {
		require.NoError(t, r.Write(domain.Frame{Seq: uint64(i), Data: jpegPayload}))
	}

	summary := r.Finalize(domain.StopReasonManual)
	assert.EqualValues(t, 500, summary.FrameCount+summary.FramesDropped)
}

func TestRecorderConcurrentWriteAndFinalize(t *testing.T) {
	// Writes race finalization in the wired system: the acquisition loop
	// keeps calling Write while a stop finalizes the recorder. A Write that
	// passes the finalized check must never land on a closed queue.
	for i := 0; i < 100; i++ {
		path := filepath.Join(t.TempDir(), "recording.mjpeg")
		r := newTestRecorder(2)
		require.NoError(t, r.Start(path, 15))

		stop := make(chan struct{})
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			var seq uint64
			for {
				select {
				case <-stop:
					return
				default:
					seq++
					r.Write(domain.Frame{Seq: seq, Data: jpegPayload})
				}
			}
		}()

		summary := r.Finalize(domain.StopReasonManual)
		close(stop)
		<-writerDone

		assert.Equal(t, domain.StopReasonManual, summary.StopReason)

		err := r.Write(domain.Frame{Seq: 1, Data: jpegPayload})
		require.Error(t, err, "writes after finalize must be rejected")
	}
}

func TestRecorderIDAssignedOnStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording.mjpeg")
	r := newTestRecorder(16)

	assert.Empty(t, string(r.ID()))
	require.NoError(t, r.Start(path, 15))
	assert.NotEmpty(t, string(r.ID()))
	assert.False(t, r.StartedAt().IsZero())

	r.Finalize(domain.StopReasonManual)
}
