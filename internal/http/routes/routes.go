package routes

import (
	"github.com/Dhoini/Entitlement-service/internal/app"
	"github.com/Dhoini/Entitlement-service/internal/http/handlers"

	"github.com/gin-gonic/gin"
)

// SetupRoutes настраивает все маршруты API для Gin роутера
func SetupRoutes(router *gin.Engine, app *app.App) {
	router.Use(app.LoggerMiddleware)
	router.Use(gin.Recovery())

	// Публичные маршруты
	router.GET("/health", handlers.HealthCheck(app.DB))
	router.GET("/metrics", gin.WrapH(app.MetricsHandler))
	router.POST("/webhooks/stripe", app.WebhookHandler.HandleStripeWebhook)

	api := router.Group("/api/v1")
	api.Use(app.AuthMiddleware.RequireAuth())
	{
		api.POST("/profiles", app.ProfileHandler.CreateProfile)
		api.GET("/seats", app.ProfileHandler.GetSeats)
		api.GET("/payments", app.PaymentHandler.ListPayments)
	}

	admin := api.Group("/admin")
	admin.Use(app.AuthMiddleware.RequireScope(app.Config.Auth.AdminScope))
	{
		admin.POST("/prices", app.OfferHandler.CreatePrice)
		admin.PATCH("/prices/:price_id", app.OfferHandler.PatchPrice)
		admin.POST("/prices/:price_id/replace", app.OfferHandler.ReplacePrice)
		admin.PUT("/products/:product_id/default-price", app.OfferHandler.SetDefaultPrice)

		admin.GET("/coupons", app.CouponHandler.ListCoupons)
		admin.POST("/coupons", app.CouponHandler.CreateCoupon)
		admin.PATCH("/coupons/:coupon_id", app.CouponHandler.RenameCoupon)
		admin.DELETE("/coupons/:coupon_id", app.CouponHandler.DeleteCoupon)
	}

	app.Logger.Infow("API routes successfully configured")
}
