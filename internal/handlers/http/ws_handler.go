package http

import (
	"errors"
	"net/http"
	"time"

	"petwatch/internal/core/domain"
	"petwatch/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
)

// WSHandler serves the live stream over a WebSocket as binary JPEG
// messages, one frame per message. Delivery semantics match the multipart
// stream: slow consumers see dropped frames, never stale ones.
type WSHandler struct {
	controller ports.StreamController
	upgrader   websocket.Upgrader
	logger     *zap.SugaredLogger
}

func NewWSHandler(controller ports.StreamController, logger *zap.SugaredLogger) *WSHandler {
	return &WSHandler{
		controller: controller,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Appliance is LAN-facing; dashboard may be served from
				// another origin on the same network.
				return true
			},
		},
		logger: logger,
	}
}

func (h *WSHandler) SetupRoutes(router *gin.Engine) {
	router.GET("/live/ws", h.Stream)
}

func (h *WSHandler) Stream(c *gin.Context) {
	viewer, err := h.controller.AttachViewer(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrStreamNotRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		viewer.Detach()
		h.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}

	defer func() {
		viewer.Detach()
		conn.Close()
	}()

	// Reader goroutine: we never expect client messages, but reading is
	// required to process close frames and detect disconnects.
	readerGone := make(chan struct{})
	go func() {
		defer close(readerGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(wsPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-readerGone:
			return
		case <-viewer.Done():
			deadline := time.Now().Add(wsWriteTimeout)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream stopped"), deadline)
			return
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case frame, ok := <-viewer.Frames():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, frame.Data); err != nil {
				return
			}
		}
	}
}
