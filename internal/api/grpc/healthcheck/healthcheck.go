// Package healthcheck keeps the identity service's gRPC health status in line with its
// database and lets the gateway checker it.
package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/socialmesh/internal/logger"
)

// IdentityService is the service name the identity service reports under.
const IdentityService = "socialmesh.identity"

// ErrNotServing is returned by Checker.Ping when the remote reports anything but SERVING.
var ErrNotServing = errors.New("service is not serving")

// Pinger checks that a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Watcher sets the health status from periodic pings of a dependency.
type Watcher struct {
	server   *health.Server
	pinger   Pinger
	interval time.Duration
	logger   *logger.Logger
}

func NewWatcher(server *health.Server, pinger Pinger, interval time.Duration, logger *logger.Logger) *Watcher {
	return &Watcher{
		server:   server,
		pinger:   pinger,
		interval: interval,
		logger:   logger,
	}
}

// Run pings immediately and then every interval until ctx is done, at which point every
// service is marked NOT_SERVING.
func (w *Watcher) Run(ctx context.Context) {
	w.check(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.server.Shutdown()
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *Watcher) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := w.pinger.Ping(pingCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Warn("Health watcher: dependency unavailable",
			"error", err.Error())
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	w.server.SetServingStatus("", status)
	w.server.SetServingStatus(IdentityService, status)
}

// Checker asks a remote gRPC health service whether it is serving.
type Checker struct {
	client  healthpb.HealthClient
	service string
}

func NewChecker(conn grpc.ClientConnInterface, service string) *Checker {
	return &Checker{
		client:  healthpb.NewHealthClient(conn),
		service: service,
	}
}

// Dial opens a plaintext client connection to an internal gRPC address.
func Dial(addr string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client: %w", err)
	}
	return conn, nil
}

// Ping returns nil when the remote service reports SERVING.
func (c *Checker) Ping(ctx context.Context) error {
	resp, err := c.client.Check(ctx, &healthpb.HealthCheckRequest{Service: c.service})
	if err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", ErrNotServing, resp.GetStatus())
	}
	return nil
}
