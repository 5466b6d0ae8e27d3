package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/socialmesh/internal/logger"
)

// Logging logs every HTTP request and its outcome.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// HandleHTTP logs method, path, status and duration for each request.
func (l *Logging) HandleHTTP(c *gin.Context) {
	start := time.Now()
	path := c.Request.URL.Path

	l.logger.Debug("HTTP request started",
		"method", c.Request.Method,
		"path", path,
		"request_id", c.GetString(RequestIDKey))

	c.Next()

	status := c.Writer.Status()
	l.logger.Info("HTTP request completed",
		"method", c.Request.Method,
		"path", path,
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
		"client_ip", c.ClientIP(),
		"request_id", c.GetString(RequestIDKey))

	if len(c.Errors) == 0 {
		return
	}
	args := []any{
		"method", c.Request.Method,
		"path", path,
		"status", status,
		"error", c.Errors.Last().Error(),
	}
	if status >= http.StatusInternalServerError {
		l.logger.Error("HTTP request failed", args...)
	} else {
		l.logger.Warn("HTTP request rejected", args...)
	}
}
