package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"petwatch/internal/core/domain"
	"petwatch/internal/core/ports"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// streamBoundary delimits frames in the multipart live stream.
const streamBoundary = "frame"

type LiveHandler struct {
	controller ports.StreamController
	baseConfig domain.CameraConfig
	// defaultMaxRecording bounds recordings started without an explicit
	// duration; zero means unbounded.
	defaultMaxRecording time.Duration
	logger              *zap.SugaredLogger
}

func NewLiveHandler(
	controller ports.StreamController,
	baseConfig domain.CameraConfig,
	defaultMaxRecording time.Duration,
	logger *zap.SugaredLogger,
) *LiveHandler {
	return &LiveHandler{
		controller:          controller,
		baseConfig:          baseConfig,
		defaultMaxRecording: defaultMaxRecording,
		logger:              logger,
	}
}

func (h *LiveHandler) SetupRoutes(router *gin.Engine) {
	live := router.Group("/live")
	{
		live.POST("/start", h.StartStream)
		live.POST("/stop", h.StopStream)
		live.GET("/stream", h.Stream)
		live.GET("/status", h.Status)
		live.POST("/record/start", h.StartRecording)
		live.POST("/record/stop", h.StopRecording)
	}
}

// parseDuration accepts either a Go duration string ("90s", "2m") or a
// plain number of seconds.
func parseDuration(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func (h *LiveHandler) StartStream(c *gin.Context) {
	recordDuration, err := parseDuration(c.Query("record_duration"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if recordDuration < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "record_duration must not be negative"})
		return
	}

	cfg := h.baseConfig
	result, err := h.controller.StartStream(c.Request.Context(), cfg)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDeviceUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrConfigConflict):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	recording := result.Status.RecordingActive

	// A record_duration arms a recording right away on a fresh session.
	if recordDuration > 0 && !recording {
		if _, err := h.controller.StartRecording(c.Request.Context(), recordDuration); err != nil {
			// Stream start succeeded; report the session but surface the
			// recording failure so the caller is not misled.
			h.logger.Warnw("recording requested on start but could not begin",
				"error", err,
			)
		} else {
			recording = true
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"streaming": true,
		"recording": recording,
	})
}

func (h *LiveHandler) StopStream(c *gin.Context) {
	result, err := h.controller.StopStream(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"streaming":         false,
		"recording_stopped": result.RecordingStopped,
	}
	if result.Recording != nil {
		resp["recording_path"] = result.Recording.Path
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LiveHandler) Stream(c *gin.Context) {
	viewer, err := h.controller.AttachViewer(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrStreamNotRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer viewer.Detach()

	c.Header("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "close")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return
		case <-viewer.Done():
			return
		case frame, ok := <-viewer.Frames():
			if !ok {
				return
			}
			if err := writeFramePart(c.Writer, frame.Data); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

func writeFramePart(w http.ResponseWriter, data []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", streamBoundary, len(data)); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}

func (h *LiveHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.Status())
}

func (h *LiveHandler) StartRecording(c *gin.Context) {
	maxDuration, err := parseDuration(c.Query("duration"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if maxDuration < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration must not be negative"})
		return
	}
	if maxDuration == 0 {
		maxDuration = h.defaultMaxRecording
	}

	session, err := h.controller.StartRecording(c.Request.Context(), maxDuration)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrStreamNotRunning),
			errors.Is(err, domain.ErrRecordingActive),
			errors.Is(err, domain.ErrStorageDisabled):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recording": true,
		"path":      session.Path,
	})
}

func (h *LiveHandler) StopRecording(c *gin.Context) {
	session, err := h.controller.StopRecording(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if session == nil {
		// No recording was active; stop is idempotent.
		c.JSON(http.StatusOK, gin.H{"recording": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recording": false,
		"path":      session.Path,
		"duration":  session.Duration.Seconds(),
		"frames":    session.FrameCount,
	})
}
