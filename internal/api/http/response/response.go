// Package response renders the JSON envelope shared by every service.
package response

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/socialmesh/internal/apperror"
)

const internalMessage = "internal server error"

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// OK writes a success envelope. A nil data is rendered as an empty object.
func OK(c *gin.Context, status int, message string, data any) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// Error maps err to a status code and writes the failure envelope. Errors that are
// not application errors are rendered as a generic 500.
func Error(c *gin.Context, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, Envelope{
			Message: internalMessage,
			Error:   string(apperror.KindInternal),
		})
		return
	}

	if appErr.Kind == apperror.KindRateLimited {
		c.Header("Retry-After", strconv.Itoa(appErr.RetryAfterSeconds()))
	}

	c.JSON(appErr.HTTPStatus(), Envelope{
		Message: appErr.Message,
		Error:   string(appErr.Kind),
	})
}

// Abort writes the failure envelope and stops the handler chain.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	Error(c, err)
	c.Abort()
}
