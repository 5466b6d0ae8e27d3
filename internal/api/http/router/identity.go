package router

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/socialmesh/internal/api/http/handler"
	"github.com/dtroode/socialmesh/internal/api/http/middleware"
	"github.com/dtroode/socialmesh/internal/api/http/response"
	"github.com/dtroode/socialmesh/internal/apperror"
	"github.com/dtroode/socialmesh/internal/cookie"
	"github.com/dtroode/socialmesh/internal/logger"
	"github.com/dtroode/socialmesh/internal/metrics"
	"github.com/dtroode/socialmesh/internal/model"
	"github.com/dtroode/socialmesh/internal/trust"
)

// Rate limiter tier names, used in logs and metrics.
const (
	TierGateway          = "gateway"
	TierGlobal           = "global_ip"
	TierSensitiveIP      = "sensitive_ip"
	TierSensitiveAccount = "account"
)

// IdentityLimiters holds the identity service's limiter per tier.
type IdentityLimiters struct {
	Global           model.RateLimiter
	SensitiveIP      model.RateLimiter
	SensitiveAccount model.RateLimiter
}

// IdentityOptions are the dependencies of the identity HTTP API.
type IdentityOptions struct {
	AuthService    handler.AuthService
	Health         handler.HealthChecker
	Limiters       IdentityLimiters
	Cookies        *cookie.Codec
	Signer         *trust.Signer
	ContextManager model.ContextManager
	Metrics        *metrics.Metrics
	Logger         *logger.Logger
	TrustedProxies []string
}

// Identity builds the identity service's HTTP API.
type Identity struct {
	opts IdentityOptions
}

func NewIdentity(opts IdentityOptions) *Identity {
	return &Identity{opts: opts}
}

// Register creates the gin engine with every identity route.
func (r *Identity) Register() (*gin.Engine, error) {
	o := r.opts

	e, err := newEngine(o.Logger, o.TrustedProxies)
	if err != nil {
		return nil, err
	}
	e.GET("/healthz", handler.NewHealth(o.Health, o.Logger).Check)
	if o.Metrics != nil {
		e.GET("/metrics", gin.WrapH(o.Metrics.Handler()))
	}

	global := middleware.NewRateLimit(o.Limiters.Global, TierGlobal, middleware.KeyByIP, o.Metrics, o.Logger)
	sensitiveIP := middleware.NewRateLimit(o.Limiters.SensitiveIP, TierSensitiveIP, middleware.KeyByIP, o.Metrics, o.Logger)
	byEmail := middleware.NewRateLimit(o.Limiters.SensitiveAccount, TierSensitiveAccount, middleware.KeyByEmail, o.Metrics, o.Logger)
	byCookie := middleware.NewRateLimit(o.Limiters.SensitiveAccount, TierSensitiveAccount, middleware.KeyByRefreshCookie(o.Cookies), o.Metrics, o.Logger)

	api := e.Group("/api",
		middleware.NewTrust(o.Signer, o.ContextManager, o.Logger).HandleHTTP,
		global.HandleHTTP,
	)

	auth := handler.NewAuth(o.AuthService, o.Cookies, o.ContextManager, o.Logger)
	g := api.Group("/auth")
	g.POST("/register", sensitiveIP.HandleHTTP, byEmail.HandleHTTP, auth.Register)
	g.POST("/login", sensitiveIP.HandleHTTP, byEmail.HandleHTTP, auth.Login)
	g.POST("/refresh", sensitiveIP.HandleHTTP, byCookie.HandleHTTP, auth.Refresh)
	g.POST("/logout", sensitiveIP.HandleHTTP, auth.Logout)
	g.GET("/me", middleware.RequireUser(o.ContextManager), auth.Me)

	return e, nil
}

func newEngine(logger *logger.Logger, trustedProxies []string) (*gin.Engine, error) {
	e := gin.New()
	if err := e.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("failed to set trusted proxies: %w", err)
	}

	e.Use(
		middleware.RequestID(),
		middleware.NewLogging(logger).HandleHTTP,
		middleware.Recovery(logger),
	)
	e.NoRoute(func(c *gin.Context) {
		response.Error(c, apperror.NewNotFound("route not found"))
	})
	return e, nil
}
