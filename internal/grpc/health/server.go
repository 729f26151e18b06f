// Package health поднимает gRPC-сервер со стандартным протоколом grpc.health.v1
// для проверок живости воркера напоминаний.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server gRPC health-сервер.
type Server struct {
	addr   string
	srv    *grpc.Server
	health *health.Server
	log    *slog.Logger
}

// New создаёт сервер. До вызова SetServing статус NOT_SERVING.
func New(addr string, log *slog.Logger) *Server {
	srv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return &Server{
		addr:   addr,
		srv:    srv,
		health: hs,
		log:    log,
	}
}

// SetServing переключает общий статус сервиса.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
}

// Run слушает адрес и обслуживает запросы до отмены ctx.
func (s *Server) Run(ctx context.Context) error {
	const op = "grpc.health.Run"
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return s.Serve(ctx, lis)
}

// Serve обслуживает запросы на готовом listener до отмены ctx.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	const op = "grpc.health.Serve"

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("gRPC health server starting", slog.String("address", lis.Addr().String()))
		errCh <- s.srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	case <-ctx.Done():
		s.health.Shutdown()
		s.srv.GracefulStop()
		return nil
	}
}
