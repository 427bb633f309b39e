package camera

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os/exec"
	"sync"

	"petwatch/internal/core/domain"

	"go.uber.org/zap"
)

// DeviceSource reads frames from a V4L2 camera device through an ffmpeg
// subprocess emitting an image2pipe JPEG stream. The subprocess lives for
// the duration of one Open/Close cycle.
type DeviceSource struct {
	device    string
	width     int
	height    int
	frameRate int
	logger    *zap.SugaredLogger

	mu      sync.Mutex
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	frames  chan []byte
	readErr chan error
}

func NewDeviceSource(device string, width, height, frameRate int, logger *zap.SugaredLogger) *DeviceSource {
	return &DeviceSource{
		device:    device,
		width:     width,
		height:    height,
		frameRate: frameRate,
		logger:    logger,
	}
}

func (d *DeviceSource) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd != nil {
		return fmt.Errorf("%w: device %s already open", domain.ErrDeviceUnavailable, d.device)
	}

	procCtx, cancel := context.WithCancel(context.Background())
	args := []string{
		"-loglevel", "error",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", d.width, d.height),
		"-framerate", fmt.Sprintf("%d", d.frameRate),
		"-i", d.device,
		"-c:v", "mjpeg",
		"-q:v", "5",
		"-f", "image2pipe",
		"-",
	}
	cmd := exec.CommandContext(procCtx, "ffmpeg", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("%w: failed to start ffmpeg for %s: %v", domain.ErrDeviceUnavailable, d.device, err)
	}

	d.cmd = cmd
	d.cancel = cancel
	d.frames = make(chan []byte, 1)
	d.readErr = make(chan error, 1)

	frames, readErr := d.frames, d.readErr
	go func() {
		scanner := bufio.NewScanner(stdout)
		scanner.Split(scanJPEG)
		// Frames can be large at high resolutions.
		scanner.Buffer(make([]byte, 1024*1024), 8*1024*1024)

		for scanner.Scan() {
			frame := make([]byte, len(scanner.Bytes()))
			copy(frame, scanner.Bytes())
			select {
			case frames <- frame:
			case <-procCtx.Done():
				return
			default:
				// Acquisition loop is behind; keep only the newest frame.
				select {
				case <-frames:
				default:
				}
				frames <- frame
			}
		}
		if err := scanner.Err(); err != nil {
			readErr <- err
		}
		close(frames)
	}()

	d.logger.Infow("camera device opened",
		"device", d.device,
		"width", d.width,
		"height", d.height,
		"frame_rate", d.frameRate,
	)
	return nil
}

func (d *DeviceSource) Acquire(ctx context.Context) (image.Image, error) {
	d.mu.Lock()
	frames := d.frames
	readErr := d.readErr
	d.mu.Unlock()

	if frames == nil {
		return nil, fmt.Errorf("%w: device not open", domain.ErrCaptureFailed)
	}

	select {
	case data, ok := <-frames:
		if !ok {
			return nil, fmt.Errorf("%w: device stream ended", domain.ErrCaptureFailed)
		}
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: bad frame from device: %v", domain.ErrCaptureFailed, err)
		}
		return img, nil
	case err := <-readErr:
		return nil, fmt.Errorf("%w: %v", domain.ErrCaptureFailed, err)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", domain.ErrCaptureFailed, ctx.Err())
	}
}

func (d *DeviceSource) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd == nil {
		return nil
	}

	d.cancel()
	// ffmpeg exits non-zero when cancelled; that is expected here.
	if err := d.cmd.Wait(); err != nil {
		d.logger.Debugw("ffmpeg exited", "error", err)
	}
	d.cmd = nil
	d.cancel = nil
	d.frames = nil
	d.readErr = nil
	d.logger.Infow("camera device closed", "device", d.device)
	return nil
}

// scanJPEG is a bufio.Scanner split function that cuts an image2pipe stream
// at each JPEG EOI marker (0xFFD9).
func scanJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	eoi := []byte{0xff, 0xd9}
	if i := bytes.Index(data, eoi); i >= 0 {
		return i + len(eoi), data[0 : i+len(eoi)], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
