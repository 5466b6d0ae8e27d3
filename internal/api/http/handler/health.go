package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/socialmesh/internal/api/http/response"
	"github.com/dtroode/socialmesh/internal/logger"
)

const healthTimeout = 2 * time.Second

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Health serves the liveness endpoint.
type Health struct {
	checker HealthChecker
	logger  *logger.Logger
}

func NewHealth(checker HealthChecker, logger *logger.Logger) *Health {
	return &Health{checker: checker, logger: logger}
}

// Check answers 200 when the dependency responds and 503 otherwise.
func (h *Health) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := h.checker.Ping(ctx); err != nil {
		h.logger.Warn("Health handler: dependency unavailable",
			"error", err.Error())
		c.JSON(http.StatusServiceUnavailable, response.Envelope{
			Message: "service unavailable",
			Error:   "UnavailableError",
		})
		return
	}

	response.OK(c, http.StatusOK, "ok", nil)
}
