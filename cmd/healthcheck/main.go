package main

import (
	"context"
	"flag"
	"os"

	entgrpc "github.com/Dhoini/Entitlement-service/internal/grpc"
	"github.com/Dhoini/Entitlement-service/pkg/logger"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Probe для контейнера: код выхода 0, только если сервис SERVING.
func main() {
	opts := entgrpc.DefaultClientOptions()
	flag.StringVar(&opts.Address, "addr", opts.Address, "gRPC address of the entitlement service")
	flag.Parse()

	log := logger.New(logger.WARN)
	client, err := entgrpc.NewClient(opts, log)
	if err != nil {
		log.Errorw("Failed to create gRPC client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	status, err := client.Check(context.Background(), entgrpc.ServiceName)
	if err != nil || status != healthpb.HealthCheckResponse_SERVING {
		log.Errorw("Service is not serving", "status", status.String(), "error", err)
		os.Exit(1)
	}
}
