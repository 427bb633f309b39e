package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"petwatch/internal/core/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Core sentinel errors surfaced via c.Error must carry their HTTP status.
func TestErrorHandlerMiddleware_DomainErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrDeviceUnavailable, http.StatusServiceUnavailable},
		{domain.ErrStreamNotRunning, http.StatusConflict},
		{domain.ErrRecordingActive, http.StatusConflict},
		{domain.ErrConfigConflict, http.StatusConflict},
		{domain.ErrStorageDisabled, http.StatusConflict},
		{domain.ErrRecordNotFound, http.StatusNotFound},
	}

	for _, tc := range cases {
		router := gin.New()
		router.Use(ErrorHandlerMiddleware(zap.NewNop().Sugar()))
		router.GET("/test", func(c *gin.Context) {
			c.Error(tc.err)
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		router.ServeHTTP(w, req)
		if w.Code != tc.status {
			t.Fatalf("expected status %d for %v, got %d", tc.status, tc.err, w.Code)
		}
	}
}

func TestErrorHandlerMiddleware_UnknownErrorIs500(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorHandlerMiddleware(zap.NewNop().Sugar()))
	router.GET("/test", func(c *gin.Context) {
		c.Error(http.ErrBodyNotAllowed)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
}
