package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/Dhoini/Entitlement-service/pkg/res"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

const (
	// Ограничение на размер тела запроса вебхука (Stripe рекомендует ~65kb)
	maxRequestBodySize = int64(65536)
)

// WebhookProcessor обрабатывает проверенные события Stripe.
type WebhookProcessor interface {
	HandleEvent(ctx context.Context, event stripe.Event) error
}

// WebhookHandler обрабатывает входящие вебхуки от Stripe.
type WebhookHandler struct {
	processor     WebhookProcessor
	log           *logger.Logger
	webhookSecret string
}

// NewWebhookHandler создает новый экземпляр WebhookHandler.
func NewWebhookHandler(webhookSecret string, processor WebhookProcessor, log *logger.Logger) (*WebhookHandler, error) {
	if webhookSecret == "" {
		log.Errorw("Stripe webhook secret is not configured in config.Stripe.WebhookSecret")
		return nil, errors.New("stripe webhook secret is not configured")
	}
	return &WebhookHandler{
		processor:     processor,
		log:           log,
		webhookSecret: webhookSecret,
	}, nil
}

// HandleStripeWebhook - обработчик для Gin, принимающий вебхуки Stripe.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	// Тело читается один раз: подпись считается по сырым байтам.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodySize)
	payload, err := io.ReadAll(c.Request.Body)
	//goland:noinspection GoUnhandledErrorResult
	defer c.Request.Body.Close()

	if err != nil {
		h.log.Errorw("Failed to read webhook request body", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Cannot read request body"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	if sigHeader == "" {
		h.log.Warnw("Missing Stripe-Signature header")
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Missing Stripe-Signature header"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	event, err := webhook.ConstructEvent(payload, sigHeader, h.webhookSecret)
	if err != nil {
		h.log.Errorw("Webhook signature verification failed", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Webhook signature verification failed"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	h.log.Infow("Received verified Stripe event", "eventID", event.ID, "eventType", event.Type)

	if err := h.processor.HandleEvent(c.Request.Context(), event); err != nil {
		// 500 заставит Stripe повторить доставку
		h.log.Errorw("Error processing webhook event", "error", err, "eventID", event.ID, "eventType", event.Type)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Internal server error processing webhook"}, http.StatusInternalServerError)
		c.Abort()
		return
	}

	c.Status(http.StatusOK)
}
