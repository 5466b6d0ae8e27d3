package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dtroode/socialmesh/internal/config"
	"github.com/dtroode/socialmesh/internal/logger"
	"github.com/dtroode/socialmesh/internal/model"
)

const (
	shutdownTimeout = 10 * time.Second
	skipConfig      = "skip-config"
)

// app is filled in by the root command before any subcommand runs.
type app struct {
	envFile string
	cfg     *config.Config
	logger  *logger.Logger
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "mesh",
		Short:         "Social mesh gateway and identity service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := cmd.Annotations[skipConfig]; ok {
				return nil
			}
			return a.load()
		},
	}
	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the environment is parsed")

	cmd.AddCommand(
		identityCmd(a),
		gatewayCmd(a),
		migrateCmd(a),
		versionCmd(cmd.OutOrStdout),
	)
	return cmd
}

func (a *app) load() error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	a.cfg = cfg
	a.logger = logger.New(cfg.LogLevel, cfg.LogFormat)
	return nil
}

func versionCmd(out func() io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print build information",
		Annotations: map[string]string{skipConfig: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(out(), "Build version: %s\nBuild date: %s\nBuild commit: %s\n",
				buildVersion, buildDate, buildCommit)
		},
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
}

// endpoint is a server and the listener it accepts connections on.
type endpoint struct {
	server        model.Server
	securityLayer model.SecurityLayer
}

// serve runs every endpoint until ctx is done or one of them fails to start, then stops
// them all within shutdownTimeout.
func serve(ctx context.Context, logger *logger.Logger, endpoints ...endpoint) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(endpoints))
	var wg sync.WaitGroup
	for _, e := range endpoints {
		wg.Add(1)
		go func(e endpoint) {
			defer wg.Done()
			logger.Info("Starting server on", "address", e.server.Address())
			if err := e.server.Start(e.securityLayer); err != nil {
				logger.Error("failed to start server", "error", err, "address", e.server.Address())
				errCh <- err
				cancel()
			}
		}(e)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	for _, e := range endpoints {
		if err := e.server.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", e.server.Address())
		}
	}

	wg.Wait()
	close(errCh)
	logger.Info("shutdown complete")
	return <-errCh
}
