package app

import (
	"fmt"
	"net/http"

	"github.com/Dhoini/Entitlement-service/internal/config"
	"github.com/Dhoini/Entitlement-service/internal/http/handlers"
	"github.com/Dhoini/Entitlement-service/internal/middleware"
	"github.com/Dhoini/Entitlement-service/internal/services"
	"github.com/Dhoini/Entitlement-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services сервисный слой, собранный в main
type Services struct {
	Seats      *services.SeatLedger
	Redemption *services.RedemptionService
	Payments   *services.PaymentHistoryService
	Offers     *services.OfferService
	Coupons    *services.CouponService
	Webhooks   *services.WebhookService
}

// App представляет собой контейнер для всех компонентов HTTP-слоя
type App struct {
	Config           *config.Config
	ProfileHandler   *handlers.ProfileHandler
	PaymentHandler   *handlers.PaymentHandler
	OfferHandler     *handlers.OfferHandler
	CouponHandler    *handlers.CouponHandler
	WebhookHandler   *handlers.WebhookHandler
	AuthMiddleware   *middleware.JWTMiddleware
	LoggerMiddleware gin.HandlerFunc
	MetricsHandler   http.Handler
	DB               handlers.Pinger
	Logger           *logger.Logger
}

// NewApp создает и инициализирует новый экземпляр приложения
func NewApp(cfg *config.Config, svc Services, db handlers.Pinger, registry *prometheus.Registry, log *logger.Logger) (*App, error) {
	webhookHandler, err := handlers.NewWebhookHandler(cfg.Stripe.WebhookSecret, svc.Webhooks, log.Named("webhook"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize webhook handler: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwtSecret is not configured")
	}
	validator := &middleware.DefaultTokenValidator{Secret: []byte(cfg.Auth.JWTSecret)}

	return &App{
		Config:           cfg,
		ProfileHandler:   handlers.NewProfileHandler(svc.Redemption, svc.Seats, log.Named("profiles")),
		PaymentHandler:   handlers.NewPaymentHandler(svc.Payments, cfg.Payments.PageSize, log.Named("payments")),
		OfferHandler:     handlers.NewOfferHandler(svc.Offers, log.Named("offers")),
		CouponHandler:    handlers.NewCouponHandler(svc.Coupons, log.Named("coupons")),
		WebhookHandler:   webhookHandler,
		AuthMiddleware:   middleware.NewJWTMiddleware(cfg, log, validator),
		LoggerMiddleware: middleware.RequestLogger(log.Named("http")),
		MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		DB:               db,
		Logger:           log,
	}, nil
}
