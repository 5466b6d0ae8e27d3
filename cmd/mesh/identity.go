package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/health"

	grpchealth "github.com/dtroode/socialmesh/internal/api/grpc/healthcheck"
	grpcrouter "github.com/dtroode/socialmesh/internal/api/grpc/router"
	grpcserver "github.com/dtroode/socialmesh/internal/api/grpc/server"
	httpcontext "github.com/dtroode/socialmesh/internal/api/http/context"
	"github.com/dtroode/socialmesh/internal/api/http/router"
	httpserver "github.com/dtroode/socialmesh/internal/api/http/server"
	"github.com/dtroode/socialmesh/internal/cookie"
	"github.com/dtroode/socialmesh/internal/metrics"
	"github.com/dtroode/socialmesh/internal/password"
	"github.com/dtroode/socialmesh/internal/repository/postgres"
	"github.com/dtroode/socialmesh/internal/server"
	"github.com/dtroode/socialmesh/internal/service"
	"github.com/dtroode/socialmesh/internal/token"
	"github.com/dtroode/socialmesh/internal/trust"
)

const healthInterval = 5 * time.Second

func identityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "identity",
		Short: "Run the identity service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			return a.runIdentity(ctx)
		},
	}
}

func (a *app) runIdentity(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger.With("service", "identity")

	db, err := postgres.NewConection(ctx, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer db.Close()

	lim, err := newLimiters(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer lim.Close()

	m, err := metrics.New()
	if err != nil {
		return err
	}

	authService := service.NewAuth(
		postgres.NewUserRepository(db),
		postgres.NewSessionRepository(db),
		token.NewJWT(cfg.JWT.Secret, token.WithAccessTTL(cfg.JWT.AccessTTL)),
		password.NewArgon2(password.Params{Time: cfg.KDF.Time, MemKiB: cfg.KDF.MemKiB, Par: cfg.KDF.Par}),
		logger,
		service.WithMetrics(m),
	)

	engine, err := router.NewIdentity(router.IdentityOptions{
		AuthService: authService,
		Health:      db,
		Limiters: router.IdentityLimiters{
			Global:           lim.tier("global_ip", cfg.RateLimits.Global),
			SensitiveIP:      lim.tier("sensitive_ip", cfg.RateLimits.SensitiveIP),
			SensitiveAccount: lim.tier("account", cfg.RateLimits.SensitiveAccount),
		},
		Cookies:        cookie.NewCodec(cfg.Cookie.Secret, cfg.Cookie.Secure, cfg.Cookie.TTL),
		Signer:         trust.NewSigner(cfg.Trust.Secret, cfg.Trust.MaxAge),
		ContextManager: httpcontext.NewManager(),
		Metrics:        m,
		Logger:         logger,
		TrustedProxies: cfg.TrustedProxies,
	}).Register()
	if err != nil {
		return err
	}

	healthServer := health.NewServer()
	go grpchealth.NewWatcher(healthServer, db, healthInterval, logger).Run(ctx)
	grpcSrv := grpcserver.NewGRPCServer(
		grpcrouter.New(healthServer, logger).Register(),
		net.JoinHostPort("", cfg.GRPC.Port),
	)
	httpSrv := httpserver.NewHTTPServer(engine, net.JoinHostPort("", cfg.HTTP.Port))

	logAppVersion(logger)
	return serve(ctx, logger,
		endpoint{
			server:        httpSrv,
			securityLayer: server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName),
		},
		endpoint{server: grpcSrv, securityLayer: server.NewPlainListener()},
	)
}
