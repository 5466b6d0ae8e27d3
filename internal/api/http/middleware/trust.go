package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dtroode/socialmesh/internal/api/http/response"
	"github.com/dtroode/socialmesh/internal/apperror"
	"github.com/dtroode/socialmesh/internal/logger"
	"github.com/dtroode/socialmesh/internal/model"
	"github.com/dtroode/socialmesh/internal/trust"
)

// Trust runs in downstream services. It accepts the gateway's x-user-id header as the
// caller's identity, checking the identity assertion when signing is enabled.
type Trust struct {
	signer         *trust.Signer
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewTrust creates a Trust middleware.
func NewTrust(signer *trust.Signer, contextManager model.ContextManager, logger *logger.Logger) *Trust {
	return &Trust{signer: signer, contextManager: contextManager, logger: logger}
}

// HandleHTTP stores the relayed user id on the request context. An empty header is an
// anonymous request.
func (m *Trust) HandleHTTP(c *gin.Context) {
	raw := c.GetHeader(trust.HeaderUserID)
	if raw == "" {
		c.Next()
		return
	}

	if m.signer.Enabled() {
		if err := m.signer.Verify(raw, c.GetHeader(trust.HeaderSignature)); err != nil {
			m.logger.Warn("Trust middleware: identity assertion rejected",
				"error", err.Error())
			response.Abort(c, apperror.NewForbidden("untrusted identity header"))
			return
		}
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		response.Abort(c, apperror.NewForbidden("malformed identity header"))
		return
	}

	c.Request = c.Request.WithContext(m.contextManager.SetUserIDToContext(c.Request.Context(), userID))
	c.Next()
}

// RequireUser rejects anonymous requests.
func RequireUser(contextManager model.ContextManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := contextManager.GetUserIDFromContext(c.Request.Context()); !ok {
			response.Abort(c, apperror.NewMissingToken())
			return
		}
		c.Next()
	}
}
