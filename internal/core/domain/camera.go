package domain

import (
	"fmt"
	"time"
)

// CameraConfig is immutable for the lifetime of a stream session;
// changing it requires a stop/start cycle.
type CameraConfig struct {
	Width          int
	Height         int
	FrameRate      int
	Quality        int
	StorageEnabled bool
	StorageDir     string
}

func (c CameraConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid resolution %dx%d: dimensions must be positive", c.Width, c.Height)
	}
	if c.FrameRate <= 0 || c.FrameRate > 60 {
		return fmt.Errorf("invalid frame rate %d: must be in 1..60", c.FrameRate)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("invalid quality %d: must be in 1..100", c.Quality)
	}
	if c.StorageEnabled && c.StorageDir == "" {
		return fmt.Errorf("storage enabled but no storage directory configured")
	}
	return nil
}

// FrameInterval returns the pacing delay between frames at the target rate.
func (c CameraConfig) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

// Matches reports whether two configurations are interchangeable for an
// already-running session. Only geometry and rate are material; quality and
// storage settings do not force a restart.
func (c CameraConfig) Matches(other CameraConfig) bool {
	return c.Width == other.Width &&
		c.Height == other.Height &&
		c.FrameRate == other.FrameRate
}

func (c CameraConfig) Resolution() string {
	return fmt.Sprintf("%dx%d", c.Width, c.Height)
}
