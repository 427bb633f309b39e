package middleware

import (
	stderrors "errors"
	"net/http"

	"petwatch/internal/core/domain"
	"petwatch/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusForDomainError maps core sentinel errors to HTTP statuses for
// handlers that surface them via c.Error instead of writing a response
// themselves.
func statusForDomainError(err error) (int, bool) {
	switch {
	case stderrors.Is(err, domain.ErrDeviceUnavailable):
		return http.StatusServiceUnavailable, true
	case stderrors.Is(err, domain.ErrStreamNotRunning),
		stderrors.Is(err, domain.ErrRecordingActive),
		stderrors.Is(err, domain.ErrConfigConflict),
		stderrors.Is(err, domain.ErrStorageDisabled):
		return http.StatusConflict, true
	case stderrors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound, true
	}
	return 0, false
}

// ErrorHandlerMiddleware handles application errors and returns appropriate HTTP responses
func ErrorHandlerMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Check if there are any errors
		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err

			// Try to extract AppError
			appErr := errors.GetAppError(err)
			if appErr != nil {
				// Log error with context
				logger.Errorw("application error",
					"code", appErr.Code,
					"message", appErr.Message,
					"status", appErr.HTTPStatus,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"context", appErr.Context,
				)

				// Return structured error response
				c.JSON(appErr.HTTPStatus, gin.H{
					"error":   string(appErr.Code),
					"message": appErr.Message,
					"details": appErr.Context,
				})
				return
			}

			// Core sentinel errors carry their status with them.
			if status, ok := statusForDomainError(err); ok {
				logger.Warnw("request rejected",
					"error", err.Error(),
					"status", status,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				c.JSON(status, gin.H{
					"error": err.Error(),
				})
				return
			}

			// Handle non-AppError errors
			logger.Errorw("unhandled error",
				"error", err.Error(),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)

			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   string(errors.ErrCodeInternal),
				"message": "Internal server error",
			})
		}
	}
}

// RecoveryMiddleware recovers from panics and returns proper error responses
func RecoveryMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Errorw("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   string(errors.ErrCodeInternal),
					"message": "Internal server error",
				})
				c.Abort()
			}
		}()

		c.Next()
	}
}

