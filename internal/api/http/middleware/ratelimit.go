package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/dtroode/socialmesh/internal/api/http/response"
	"github.com/dtroode/socialmesh/internal/apperror"
	"github.com/dtroode/socialmesh/internal/cookie"
	"github.com/dtroode/socialmesh/internal/logger"
	"github.com/dtroode/socialmesh/internal/metrics"
	"github.com/dtroode/socialmesh/internal/model"
)

// KeyFunc extracts the budget key from a request. An empty key skips the limiter.
type KeyFunc func(c *gin.Context) string

// RateLimit consumes one point per request from a limiter tier.
type RateLimit struct {
	limiter model.RateLimiter
	tier    string
	key     KeyFunc
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewRateLimit creates a RateLimit middleware for tier.
func NewRateLimit(limiter model.RateLimiter, tier string, key KeyFunc, metrics *metrics.Metrics, logger *logger.Logger) *RateLimit {
	return &RateLimit{
		limiter: limiter,
		tier:    tier,
		key:     key,
		metrics: metrics,
		logger:  logger,
	}
}

// HandleHTTP rejects the request with 429 once the key's budget is spent.
func (m *RateLimit) HandleHTTP(c *gin.Context) {
	key := m.key(c)
	if key == "" {
		c.Next()
		return
	}

	res, err := m.limiter.Consume(c.Request.Context(), key)
	if err != nil {
		m.logger.Error("Rate limiter error",
			"tier", m.tier,
			"error", err.Error())
		response.Abort(c, apperror.NewInternal("rate limiter unavailable", err))
		return
	}

	if !res.Allowed {
		m.metrics.ObserveRejection(m.tier)
		m.logger.Warn("Rate limit exceeded",
			"tier", m.tier,
			"client_ip", c.ClientIP(),
			"retry_after", res.RetryAfter.String())
		response.Abort(c, apperror.NewRateLimited(res.RetryAfter))
		return
	}

	c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	c.Next()
}

// KeyByIP keys the budget by client address.
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByEmail keys the budget by the normalized email in the JSON body. The body is
// cached so the handler can bind it again.
func KeyByEmail(c *gin.Context) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

// KeyByRefreshCookie keys the budget by the refresh token in the signed cookie.
func KeyByRefreshCookie(codec *cookie.Codec) KeyFunc {
	return func(c *gin.Context) string {
		token, _ := codec.Read(c.Request)
		return token
	}
}
