// Package grpc holds gRPC client helpers for gallery health checks.
package grpc

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// DialHealth opens a plaintext client connection for health checks.
func DialHealth(addr string) (*gogrpc.ClientConn, error) {
	conn, err := gogrpc.NewClient(
		addr,
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial gRPC health %s: %w", addr, err)
	}
	return conn, nil
}

// WaitForStatus blocks until the health service reports want for service or
// the context ends.
func WaitForStatus(ctx context.Context, conn *gogrpc.ClientConn, service string, want grpc_health_v1.HealthCheckResponse_ServingStatus, logf func(string, ...any)) error {
	if conn == nil {
		return fmt.Errorf("gRPC connection is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	healthClient := grpc_health_v1.NewHealthClient(conn)
	backoff := 100 * time.Millisecond
	for {
		callCtx, cancel := context.WithTimeout(ctx, time.Second)
		response, err := healthClient.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		if err == nil && response.GetStatus() == want {
			if logf != nil {
				logf("gRPC health %q is %s", service, want)
			}
			return nil
		}
		if logf != nil {
			if err != nil {
				logf("waiting for gRPC health %q: %v", service, err)
			} else {
				logf("waiting for gRPC health %q: status %s", service, response.GetStatus())
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for gRPC health %s: %w", want, ctx.Err())
		case <-time.After(backoff):
		}

		if backoff < time.Second {
			backoff = min(backoff*2, time.Second)
		}
	}
}
