package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/app"
	"github.com/Dhoini/Entitlement-service/internal/config"
	"github.com/Dhoini/Entitlement-service/internal/db"
	entgrpc "github.com/Dhoini/Entitlement-service/internal/grpc"
	"github.com/Dhoini/Entitlement-service/internal/http/routes"
	"github.com/Dhoini/Entitlement-service/internal/interceptors"
	"github.com/Dhoini/Entitlement-service/internal/kafka"
	"github.com/Dhoini/Entitlement-service/internal/metrics"
	"github.com/Dhoini/Entitlement-service/internal/middleware"
	"github.com/Dhoini/Entitlement-service/internal/repository"
	"github.com/Dhoini/Entitlement-service/internal/repository/postgres"
	"github.com/Dhoini/Entitlement-service/internal/services"
	"github.com/Dhoini/Entitlement-service/internal/stripe"
	"github.com/Dhoini/Entitlement-service/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const healthInterval = 15 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(".env")
	if err != nil {
		logger.New(logger.INFO).Fatalw("Failed to load configuration", "error", err)
	}

	log := logger.New(logger.ParseLevel(cfg.App.LogLevel))
	defer log.Sync()
	log.Infow("Entitlement service starting up...", "env", cfg.App.Env)

	if cfg.Stripe.APIKey == "" {
		log.Warnw("Stripe API Key is not set, catalog and payment history calls will fail")
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Хранилища ---
	dbClient, err := withRetry(ctx, log, "postgres", func() (*db.DBClient, error) {
		return db.NewDBClient(ctx, cfg.Database.DSN, log.Named("db"))
	})
	if err != nil {
		log.Fatalw("Failed to connect to database", "error", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Errorw("Error closing database connection", "error", err)
		}
	}()

	if cfg.Database.MigrationsAuto {
		if err := db.Migrate(cfg.Database.DSN, log.Named("migrate")); err != nil {
			log.Fatalw("Failed to apply migrations", "error", err)
		}
	}

	ledgerPool, err := withRetry(ctx, log, "postgres-pool", func() (*pgxpool.Pool, error) {
		return postgres.NewConnection(ctx, cfg.Database.DSN, postgres.DefaultPoolOptions(), log.Named("ledger"))
	})
	if err != nil {
		log.Fatalw("Failed to open payment ledger pool", "error", err)
	}
	defer ledgerPool.Close()

	var subscriptions repository.SubscriptionRepository = repository.NewPostgresSubscriptionRepository(dbClient.DB(), log.Named("subscriptions"))
	redisCache, err := repository.NewRedisCacheRepository(ctx, &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Redis.TTL, log.Named("redis"))
	if err != nil {
		log.Warnw("Failed to initialize Redis cache, continuing without caching", "error", err)
	} else {
		defer func() {
			if err := redisCache.Close(); err != nil {
				log.Errorw("Error closing Redis connection", "error", err)
			}
		}()
		subscriptions = repository.NewCachedSubscriptionRepository(subscriptions, redisCache, log.Named("subscriptions"))
		log.Infow("Using cached subscription repository")
	}

	store := repository.NewPostgresEntitlementStore(dbClient.DB(), log.Named("store"))
	profiles := repository.NewPostgresProfileRepository(dbClient.DB(), log.Named("profiles"))
	payments := postgres.NewPaymentRepository(ledgerPool, log.Named("ledger"))
	customers := postgres.NewPostgresCustomerRepository(ledgerPool, log.Named("customers"))

	// --- Kafka ---
	var producer kafka.Producer = kafka.NewNopProducer(log.Named("kafka"))
	if len(cfg.Kafka.Brokers) > 0 {
		if err := kafka.EnsureKafkaTopics(cfg.Kafka.Brokers, kafka.DefaultTopicSpec(), log.Named("kafka")); err != nil {
			log.Warnw("Failed to ensure Kafka topics", "error", err)
		}
		kp, err := kafka.NewKafkaProducer(cfg.Kafka.Brokers, log.Named("kafka"))
		if err != nil {
			log.Errorw("Failed to initialize Kafka producer, continuing without event publishing", "error", err)
		} else {
			producer = kp
		}
	}
	defer func() {
		if err := producer.Close(); err != nil {
			log.Errorw("Error closing Kafka producer", "error", err)
		}
	}()

	// --- Метрики ---
	registry := metrics.NewRegistry()
	entMetrics := metrics.NewEntitlementMetrics(registry, log)

	// --- Сервисы ---
	stripeClient := stripe.NewStripeClient(cfg.Stripe.APIKey, log.Named("stripe"))
	seats := services.NewSeatLedger(cfg, store, subscriptions, entMetrics, log.Named("seats"))
	svc := app.Services{
		Seats:      seats,
		Redemption: services.NewRedemptionService(cfg, seats, store, profiles, subscriptions, producer, entMetrics, log.Named("redemption")),
		Payments:   services.NewPaymentHistoryService(cfg, payments, customers, stripeClient, entMetrics, log.Named("payments")),
		Offers:     services.NewOfferService(stripeClient, producer, entMetrics, log.Named("offers")),
		Coupons:    services.NewCouponService(stripeClient, log.Named("coupons")),
		Webhooks:   services.NewWebhookService(payments, customers, subscriptions, log.Named("webhooks")),
	}

	reconciler := services.NewOrphanReconciler(cfg, store, profiles, subscriptions, producer, entMetrics, log.Named("reconciler"))
	if err := reconciler.Start(); err != nil {
		log.Fatalw("Failed to start orphan reconciler", "error", err)
	}

	// --- HTTP ---
	application, err := app.NewApp(cfg, svc, dbClient, registry, log)
	if err != nil {
		log.Fatalw("Failed to initialize application", "error", err)
	}

	router := gin.New()
	routes.SetupRoutes(router, application)

	httpServer := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
	}

	go func() {
		log.Infow("Starting HTTP server", "port", cfg.App.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("Failed to start HTTP server", "error", err)
		}
	}()

	// --- gRPC (health + reflection) ---
	validator := &middleware.DefaultTokenValidator{Secret: []byte(cfg.Auth.JWTSecret)}
	grpcServer := entgrpc.NewServer(cfg, interceptors.NewAuthInterceptor(log.Named("grpc"), validator), log.Named("grpc"))
	go grpcServer.WatchHealth(ctx, dbClient, healthInterval)
	go func() {
		if err := grpcServer.Start(); err != nil {
			log.Fatalw("Failed to start gRPC server", "error", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infow("Shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown error", "error", err)
	} else {
		log.Infow("HTTP server gracefully stopped")
	}

	grpcServer.Stop()

	select {
	case <-reconciler.Stop().Done():
		log.Infow("Orphan reconciler stopped")
	case <-shutdownCtx.Done():
		log.Warnw("Orphan reconciler did not stop in time")
	}

	log.Infow("Cleanup finished. Goodbye!")
}

// withRetry повторяет подключение с экспоненциальной задержкой, пока зависимость поднимается.
func withRetry[T any](ctx context.Context, log *logger.Logger, name string, connect func() (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = time.Minute

	return backoff.RetryNotifyWithData(connect, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		log.Warnw("Connection attempt failed, retrying", "dependency", name, "error", err, "retryIn", next)
	})
}
