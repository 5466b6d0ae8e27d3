package middleware

import (
	"fmt"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/socialmesh/internal/api/http/response"
	"github.com/dtroode/socialmesh/internal/apperror"
	"github.com/dtroode/socialmesh/internal/logger"
)

// Recovery turns a panic into a 500 envelope.
func Recovery(logger *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.Error("HTTP handler panicked",
			"path", c.Request.URL.Path,
			"panic", fmt.Sprint(recovered))
		response.Abort(c, apperror.NewInternal("internal server error", nil))
	})
}
