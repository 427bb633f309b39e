package camera

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"petwatch/internal/core/domain"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"go.uber.org/zap"
)

// SyntheticSource generates deterministic placeholder imagery with a visible
// timestamp overlay. It is used when no camera hardware is present and keeps
// the same pacing behavior as a real device: Acquire returns roughly once per
// frame interval.
type SyntheticSource struct {
	width    int
	height   int
	interval time.Duration
	logger   *zap.SugaredLogger

	mu       sync.Mutex
	opened   bool
	frameNum uint64
	lastTick time.Time
}

func NewSyntheticSource(width, height, frameRate int, logger *zap.SugaredLogger) *SyntheticSource {
	return &SyntheticSource{
		width:    width,
		height:   height,
		interval: time.Second / time.Duration(frameRate),
		logger:   logger,
	}
}

func (s *SyntheticSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opened {
		return fmt.Errorf("%w: synthetic source already open", domain.ErrDeviceUnavailable)
	}
	s.opened = true
	s.frameNum = 0
	s.lastTick = time.Time{}
	s.logger.Infow("synthetic camera source opened",
		"width", s.width,
		"height", s.height,
	)
	return nil
}

func (s *SyntheticSource) Acquire(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: source not open", domain.ErrCaptureFailed)
	}
	num := s.frameNum
	s.frameNum++
	last := s.lastTick
	s.lastTick = time.Now()
	s.mu.Unlock()

	// Pace generation like a real device would: one frame per interval.
	if !last.IsZero() {
		if wait := s.interval - time.Since(last); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", domain.ErrCaptureFailed, ctx.Err())
			}
		}
	}

	return s.render(num, time.Now()), nil
}

func (s *SyntheticSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return nil
	}
	s.opened = false
	s.logger.Info("synthetic camera source closed")
	return nil
}

// render draws the placeholder frame: a dark background, a block that sweeps
// across the frame so motion is visible, and a timestamp overlay.
func (s *SyntheticSource) render(num uint64, now time.Time) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))

	bg := color.RGBA{R: 24, G: 28, B: 34, A: 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	// Sweeping block
	blockW := s.width / 8
	blockH := s.height / 8
	x := int(num) * 7 % (s.width - blockW)
	y := (s.height - blockH) / 2
	block := image.Rect(x, y, x+blockW, y+blockH)
	draw.Draw(img, block, &image.Uniform{C: color.RGBA{R: 235, G: 154, B: 32, A: 255}}, image.Point{}, draw.Src)

	label := fmt.Sprintf("petwatch sim %s #%d", now.Format("2006-01-02 15:04:05.000"), num)
	drawLabel(img, 8, 16, label)

	return img
}

func drawLabel(img *image.RGBA, x, y int, label string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(label)
}
