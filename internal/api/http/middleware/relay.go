package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dtroode/socialmesh/internal/api/http/response"
	"github.com/dtroode/socialmesh/internal/apperror"
	"github.com/dtroode/socialmesh/internal/logger"
	"github.com/dtroode/socialmesh/internal/model"
	"github.com/dtroode/socialmesh/internal/trust"
)

const bearerPrefix = "Bearer "

// TokenVerifier resolves an access token to a user id.
type TokenVerifier interface {
	Verify(accessToken string) (uuid.UUID, error)
}

// Relay is the gateway's trust boundary. It replaces any client-supplied identity
// headers with the identity proven by the bearer token, or with an empty identity.
type Relay struct {
	verifier       TokenVerifier
	signer         *trust.Signer
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewRelay creates a Relay. A nil or disabled signer skips the identity assertion.
func NewRelay(verifier TokenVerifier, signer *trust.Signer, contextManager model.ContextManager, logger *logger.Logger) *Relay {
	return &Relay{
		verifier:       verifier,
		signer:         signer,
		contextManager: contextManager,
		logger:         logger,
	}
}

// HandleHTTP rewrites the identity headers of the request before it is forwarded.
func (m *Relay) HandleHTTP(c *gin.Context) {
	header := c.Request.Header
	header.Del(trust.HeaderUserID)
	header.Del(trust.HeaderSignature)

	tokenString := bearerToken(header.Get("Authorization"))
	if tokenString == "" {
		header.Set(trust.HeaderUserID, "")
		c.Next()
		return
	}

	userID, err := m.verifier.Verify(tokenString)
	if err != nil {
		if errors.Is(err, model.ErrSigningKey) {
			m.logger.Error("Identity relay: signing key unavailable")
			response.Abort(c, apperror.NewInternal("failed to verify access token", err))
			return
		}
		m.logger.Debug("Identity relay: rejected access token",
			"error", err.Error())
		response.Abort(c, apperror.NewInvalidToken(err))
		return
	}

	header.Set(trust.HeaderUserID, userID.String())
	if m.signer.Enabled() {
		assertion, err := m.signer.Sign(userID.String())
		if err != nil {
			response.Abort(c, apperror.NewInternal("failed to sign identity", err))
			return
		}
		header.Set(trust.HeaderSignature, assertion)
	}

	c.Request = c.Request.WithContext(m.contextManager.SetUserIDToContext(c.Request.Context(), userID))
	c.Next()
}

func bearerToken(authorization string) string {
	if len(authorization) < len(bearerPrefix) || !strings.EqualFold(authorization[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(authorization[len(bearerPrefix):])
}
