package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/config"
	"github.com/Dhoini/Entitlement-service/internal/interceptors"
	"github.com/Dhoini/Entitlement-service/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// ServiceName имя сервиса в health-протоколе
const ServiceName = "entitlement.v1.EntitlementService"

// Pinger проверка зависимости, от которой зависит статус health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server gRPC сервер с health и reflection
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	log        *logger.Logger
	cfg        *config.Config
	listener   net.Listener
}

// NewServer создает новый gRPC сервер
func NewServer(cfg *config.Config, auth *interceptors.AuthInterceptor, log *logger.Logger) *Server {
	kaParams := keepalive.ServerParameters{
		MaxConnectionIdle:     time.Minute * 5,
		MaxConnectionAge:      time.Hour,
		MaxConnectionAgeGrace: time.Minute * 5,
		Time:                  time.Minute * 2,
		Timeout:               time.Second * 20,
	}

	grpcServer := grpc.NewServer(
		grpc.KeepaliveParams(kaParams),
		grpc.ChainUnaryInterceptor(auth.Unary()),
		grpc.ChainStreamInterceptor(auth.Stream()),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	// Включаем reflection для удобства отладки (например, с помощью grpcurl)
	reflection.Register(grpcServer)

	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		log:        log,
		cfg:        cfg,
	}
}

// SetServing выставляет статус для общего и именованного сервиса
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// WatchHealth периодически пингует зависимость до отмены ctx.
func (s *Server) WatchHealth(ctx context.Context, p Pinger, interval time.Duration) {
	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, interval/2)
		defer cancel()
		err := p.Ping(pingCtx)
		if err != nil {
			s.log.Warnw("Health check failed", "error", err)
		}
		s.SetServing(err == nil)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// Start запускает gRPC сервер; блокирует до остановки.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.cfg.GRPC.Port)
	s.log.Infow("Starting gRPC server", "addr", addr)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(listener)
}

// Serve обслуживает уже открытый listener
func (s *Server) Serve(listener net.Listener) error {
	s.listener = listener
	if err := s.grpcServer.Serve(listener); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Stop останавливает gRPC сервер
func (s *Server) Stop() {
	s.log.Infow("Stopping gRPC server")
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
