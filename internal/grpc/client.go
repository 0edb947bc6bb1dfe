package grpc

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/Dhoini/Entitlement-service/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// Client gRPC клиент для проверки состояния сервиса (probe, тесты)
type Client struct {
	conn    *grpc.ClientConn
	health  healthpb.HealthClient
	timeout time.Duration
	log     *logger.Logger
}

// ClientOptions настройки для gRPC клиента
type ClientOptions struct {
	Address          string
	Timeout          time.Duration
	UseTLS           bool
	KeepAlive        bool
	KeepAliveTime    time.Duration
	KeepAliveTimeout time.Duration
}

// DefaultClientOptions возвращает настройки по умолчанию
func DefaultClientOptions() *ClientOptions {
	return &ClientOptions{
		Address:          "localhost:50051",
		Timeout:          time.Second * 5,
		KeepAlive:        true,
		KeepAliveTime:    time.Minute,
		KeepAliveTimeout: time.Second * 20,
	}
}

// NewClient создает клиента. Соединение ленивое: устанавливается при первом вызове.
func NewClient(opts *ClientOptions, log *logger.Logger, extra ...grpc.DialOption) (*Client, error) {
	log.Debugw("Creating gRPC client", "address", opts.Address)

	var dialOpts []grpc.DialOption
	if opts.UseTLS {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})))
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	if opts.KeepAlive {
		dialOpts = append(dialOpts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                opts.KeepAliveTime,
			Timeout:             opts.KeepAliveTimeout,
			PermitWithoutStream: true,
		}))
	}
	dialOpts = append(dialOpts, extra...)

	conn, err := grpc.NewClient(opts.Address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC client: %w", err)
	}

	return &Client{
		conn:    conn,
		health:  healthpb.NewHealthClient(conn),
		timeout: opts.Timeout,
		log:     log,
	}, nil
}

// Check запрашивает статус сервиса; пустое имя означает сервер целиком.
func (c *Client) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health check failed: %w", err)
	}
	return resp.GetStatus(), nil
}

// Close закрывает соединение с gRPC сервером
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Conn возвращает gRPC соединение
func (c *Client) Conn() *grpc.ClientConn {
	return c.conn
}
