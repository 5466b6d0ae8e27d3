package main

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/spf13/cobra"

	grpchealth "github.com/dtroode/socialmesh/internal/api/grpc/healthcheck"
	httpcontext "github.com/dtroode/socialmesh/internal/api/http/context"
	"github.com/dtroode/socialmesh/internal/api/http/router"
	httpserver "github.com/dtroode/socialmesh/internal/api/http/server"
	"github.com/dtroode/socialmesh/internal/metrics"
	"github.com/dtroode/socialmesh/internal/server"
	"github.com/dtroode/socialmesh/internal/token"
	"github.com/dtroode/socialmesh/internal/trust"
)

func gatewayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Run the API gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			return a.runGateway(ctx)
		},
	}
}

func (a *app) runGateway(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger.With("service", "gateway")

	identityURL, err := url.Parse(cfg.Upstream.IdentityURL)
	if err != nil {
		return fmt.Errorf("failed to parse UPSTREAM_IDENTITY_URL: %w", err)
	}
	postURL, err := url.Parse(cfg.Upstream.PostURL)
	if err != nil {
		return fmt.Errorf("failed to parse UPSTREAM_POST_URL: %w", err)
	}

	conn, err := grpchealth.Dial(cfg.Upstream.IdentityGRPCAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	lim, err := newLimiters(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer lim.Close()

	m, err := metrics.New()
	if err != nil {
		return err
	}

	engine, err := router.NewGateway(router.GatewayOptions{
		IdentityURL:    identityURL,
		PostURL:        postURL,
		Limiter:        lim.tier("api-gateway-rl", cfg.RateLimits.Gateway),
		Verifier:       token.NewJWT(cfg.JWT.Secret, token.WithAccessTTL(cfg.JWT.AccessTTL)),
		Signer:         trust.NewSigner(cfg.Trust.Secret, cfg.Trust.MaxAge),
		Health:         grpchealth.NewChecker(conn, grpchealth.IdentityService),
		ContextManager: httpcontext.NewManager(),
		Metrics:        m,
		Logger:         logger,
		TrustedProxies: cfg.TrustedProxies,
	}).Register()
	if err != nil {
		return err
	}

	logAppVersion(logger)
	return serve(ctx, logger, endpoint{
		server:        httpserver.NewHTTPServer(engine, net.JoinHostPort("", cfg.HTTP.Port)),
		securityLayer: server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName),
	})
}
