package camera

import (
	"os"
	"os/exec"

	"petwatch/internal/core/ports"

	"go.uber.org/zap"
)

// Detect selects the frame source once at process start: the hardware-backed
// source when the configured device node and ffmpeg are both present, the
// synthetic generator otherwise. Callers above this layer never branch on the
// variant again.
func Detect(device string, width, height, frameRate int, forceSynthetic bool, logger *zap.SugaredLogger) ports.FrameSource {
	if forceSynthetic {
		logger.Info("synthetic camera source forced by configuration")
		return NewSyntheticSource(width, height, frameRate, logger)
	}

	if _, err := os.Stat(device); err != nil {
		logger.Infow("camera device not present, using synthetic source", "device", device)
		return NewSyntheticSource(width, height, frameRate, logger)
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		logger.Warnw("ffmpeg not found on PATH, using synthetic source", "device", device)
		return NewSyntheticSource(width, height, frameRate, logger)
	}

	logger.Infow("camera device detected", "device", device)
	return NewDeviceSource(device, width, height, frameRate, logger)
}
