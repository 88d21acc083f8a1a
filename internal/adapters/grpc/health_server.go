package grpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/lcalzada-xor/apmac/internal/core/ports"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceBeacon is the health service name that reports SERVING while the
// AP is beaconing.
const ServiceBeacon = "apmac.beacon"

// HealthServer publishes the AP state over the standard gRPC health
// protocol. The overall status ("") is SERVING while the MAC runs.
type HealthServer struct {
	service  ports.NetworkService
	health   *health.Server
	srv      *grpc.Server
	Interval time.Duration
}

// NewHealthServer registers the health service on a new gRPC server.
func NewHealthServer(svc ports.NetworkService) *HealthServer {
	h := &HealthServer{
		service:  svc,
		health:   health.NewServer(),
		srv:      grpc.NewServer(),
		Interval: time.Second,
	}
	healthpb.RegisterHealthServer(h.srv, h.health)
	h.health.SetServingStatus(ServiceBeacon, healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Refresh reads the AP status and updates the published states.
func (h *HealthServer) Refresh(ctx context.Context) {
	status, err := h.service.Status(ctx)
	if err != nil {
		slog.Warn("Health refresh failed", "error", err)
		h.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	h.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	beacon := healthpb.HealthCheckResponse_NOT_SERVING
	if status.BeaconGeneration {
		beacon = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(ServiceBeacon, beacon)
}

// Run listens on addr and serves until ctx is done.
func (h *HealthServer) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return h.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (h *HealthServer) Serve(ctx context.Context, ln net.Listener) error {
	h.Refresh(ctx)
	go func() {
		ticker := time.NewTicker(h.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("gRPC server shutting down")
				h.health.Shutdown()
				h.srv.GracefulStop()
				return
			case <-ticker.C:
				h.Refresh(ctx)
			}
		}
	}()

	slog.Info("gRPC health server listening", "addr", ln.Addr().String())
	if err := h.srv.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
