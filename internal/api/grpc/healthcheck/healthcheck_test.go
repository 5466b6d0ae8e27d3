package healthcheck

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/dtroode/socialmesh/internal/mocks"
	"github.com/dtroode/socialmesh/internal/testutil"
)

func startHealthServer(t *testing.T, hs *health.Server) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestChecker_Ping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  healthpb.HealthCheckResponse_ServingStatus
		wantErr error
	}{
		{name: "serving", status: healthpb.HealthCheckResponse_SERVING},
		{name: "not serving", status: healthpb.HealthCheckResponse_NOT_SERVING, wantErr: ErrNotServing},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hs := health.NewServer()
			hs.SetServingStatus(IdentityService, tt.status)
			checker := NewChecker(startHealthServer(t, hs), IdentityService)

			err := checker.Ping(context.Background())
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestChecker_Ping_UnknownService(t *testing.T) {
	checker := NewChecker(startHealthServer(t, health.NewServer()), "missing")
	assert.Error(t, checker.Ping(context.Background()))
}

func TestWatcher_Run(t *testing.T) {
	hs := health.NewServer()
	pinger := mocks.NewHealthChecker(t)
	pinger.On("Ping", mock.Anything).Return(assert.AnError).Once()
	pinger.On("Ping", mock.Anything).Return(nil)

	w := NewWatcher(hs, pinger, 10*time.Millisecond, testutil.MakeNoopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	checker := NewChecker(startHealthServer(t, hs), IdentityService)
	require.Eventually(t, func() bool {
		return checker.Ping(context.Background()) == nil
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: IdentityService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
