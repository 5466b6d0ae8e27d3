package router

import (
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/socialmesh/internal/api/http/handler"
	"github.com/dtroode/socialmesh/internal/api/http/middleware"
	"github.com/dtroode/socialmesh/internal/api/http/response"
	"github.com/dtroode/socialmesh/internal/apperror"
	"github.com/dtroode/socialmesh/internal/logger"
	"github.com/dtroode/socialmesh/internal/metrics"
	"github.com/dtroode/socialmesh/internal/model"
	"github.com/dtroode/socialmesh/internal/trust"
)

const (
	gatewayPrefix  = "/v1"
	upstreamPrefix = "/api"
)

// GatewayOptions are the dependencies of the API gateway.
type GatewayOptions struct {
	IdentityURL    *url.URL
	PostURL        *url.URL
	Limiter        model.RateLimiter
	Verifier       middleware.TokenVerifier
	Signer         *trust.Signer
	Health         handler.HealthChecker
	ContextManager model.ContextManager
	Metrics        *metrics.Metrics
	Logger         *logger.Logger
	TrustedProxies []string
	// Transport is used for upstream calls; nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// Gateway builds the public entry point that relays identity and proxies to services.
type Gateway struct {
	opts GatewayOptions
}

func NewGateway(opts GatewayOptions) *Gateway {
	return &Gateway{opts: opts}
}

// Register creates the gin engine. /v1/auth/* goes to the identity service and
// /v1/post/* to the post service, both under /api.
func (r *Gateway) Register() (*gin.Engine, error) {
	o := r.opts

	e, err := newEngine(o.Logger, o.TrustedProxies)
	if err != nil {
		return nil, err
	}
	e.GET("/healthz", handler.NewHealth(o.Health, o.Logger).Check)
	if o.Metrics != nil {
		e.GET("/metrics", gin.WrapH(o.Metrics.Handler()))
	}

	limit := middleware.NewRateLimit(o.Limiter, TierGateway, middleware.KeyByIP, o.Metrics, o.Logger)
	relay := middleware.NewRelay(o.Verifier, o.Signer, o.ContextManager, o.Logger)

	v1 := e.Group(gatewayPrefix, limit.HandleHTTP, relay.HandleHTTP)
	v1.Any("/auth/*path", forward(r.proxy(o.IdentityURL, "identity"), gatewayPrefix+"/auth"))
	v1.Any("/post/*path", forward(r.proxy(o.PostURL, "post"), gatewayPrefix+"/post"))

	return e, nil
}

func (r *Gateway) proxy(target *url.URL, name string) *httputil.ReverseProxy {
	log := r.opts.Logger.With("upstream", name)

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.URL.Path = path.Join("/", target.Path, upstreamPath(pr.In.URL.Path))
			pr.Out.URL.RawPath = ""
			pr.SetXForwarded()
		},
		Transport: r.opts.Transport,
		ErrorHandler: func(w http.ResponseWriter, req *http.Request, err error) {
			log.Error("Gateway: upstream request failed",
				"path", req.URL.Path,
				"error", err.Error())

			appErr := apperror.NewUpstream(err)
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(appErr.HTTPStatus())
			_ = json.NewEncoder(w).Encode(response.Envelope{
				Message: appErr.Message,
				Error:   string(appErr.Kind),
			})
		},
	}
}

// forward proxies only requests whose cleaned path stays under prefix.
// gin matches the uncleaned path, so /v1/auth/../../metrics reaches this handler.
func forward(proxy http.Handler, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cleaned := path.Clean(c.Request.URL.Path)
		if cleaned != prefix && !strings.HasPrefix(cleaned, prefix+"/") {
			response.Abort(c, apperror.NewNotFound("route not found"))
			return
		}

		c.Request.URL.Path = cleaned
		c.Request.URL.RawPath = ""
		proxy.ServeHTTP(c.Writer, c.Request)
	}
}

func upstreamPath(p string) string {
	return upstreamPrefix + strings.TrimPrefix(p, gatewayPrefix)
}
