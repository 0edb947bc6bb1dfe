package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/billing"
	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/Dhoini/Entitlement-service/internal/repository"
	"github.com/Dhoini/Entitlement-service/pkg/logger"

	stripego "github.com/stripe/stripe-go/v78"
)

// Типы событий Stripe, которые пишутся в локальный журнал
const (
	EventPaymentIntentSucceeded stripego.EventType = "payment_intent.succeeded"
	EventChargeRefunded         stripego.EventType = "charge.refunded"
)

// WebhookService переносит события Stripe в локальный журнал платежей.
// После записи сбрасывает кеш подписок пользователя, чтобы сводка мест не ждала TTL.
type WebhookService struct {
	ledger        repository.PaymentLedger
	customers     repository.CustomerMapping
	subscriptions repository.SubscriptionRepository
	log           *logger.Logger
}

func NewWebhookService(
	ledger repository.PaymentLedger,
	customers repository.CustomerMapping,
	subscriptions repository.SubscriptionRepository,
	log *logger.Logger,
) *WebhookService {
	return &WebhookService{ledger: ledger, customers: customers, subscriptions: subscriptions, log: log}
}

// HandleEvent обрабатывает проверенное событие. Неизвестные типы игнорируются.
// Ошибка означает, что Stripe должен повторить доставку.
func (s *WebhookService) HandleEvent(ctx context.Context, event stripego.Event) error {
	switch event.Type {
	case EventPaymentIntentSucceeded:
		var pi stripego.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return fmt.Errorf("decode payment intent: %w", err)
		}
		return s.recordPayment(ctx, &pi)

	case EventChargeRefunded:
		var ch stripego.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return fmt.Errorf("decode charge: %w", err)
		}
		return s.recordRefund(ctx, &ch)

	default:
		s.log.Debugw("Ignoring unhandled Stripe event", "eventID", event.ID, "eventType", event.Type)
		return nil
	}
}

func (s *WebhookService) recordPayment(ctx context.Context, pi *stripego.PaymentIntent) error {
	userID, err := s.resolveUser(ctx, pi.Metadata, pi.Customer)
	if err != nil {
		return err
	}
	if userID == "" {
		s.log.Warnw("Payment intent has no known user, skipping", "paymentIntentID", pi.ID)
		return nil
	}

	rec := &models.PaymentRecord{
		UserID:                userID,
		StripePaymentIntentID: &pi.ID,
		Amount:                pi.Amount,
		Currency:              string(pi.Currency),
		Status:                string(pi.Status),
		Description:           nonEmpty(pi.Description),
	}
	if sid := pi.Metadata["subscription_id"]; sid != "" {
		rec.SubscriptionID = &sid
	}
	if pi.Created > 0 {
		paidAt := time.Unix(pi.Created, 0).UTC()
		rec.PaidAt = &paidAt
	}
	if ch := pi.LatestCharge; ch != nil {
		rec.ReceiptURL = nonEmpty(ch.ReceiptURL)
		rec.RefundedAmount = ch.AmountRefunded
	}

	if err := s.ledger.Upsert(ctx, rec); err != nil {
		s.log.Errorw("Failed to record payment from webhook", "error", err, "paymentIntentID", pi.ID)
		return err
	}
	s.log.Infow("Payment recorded from webhook", "paymentIntentID", pi.ID, "userID", userID, "amount", pi.Amount)
	s.invalidate(ctx, userID)
	return nil
}

func (s *WebhookService) recordRefund(ctx context.Context, ch *stripego.Charge) error {
	if ch.PaymentIntent == nil || ch.PaymentIntent.ID == "" {
		s.log.Debugw("Refunded charge without payment intent, skipping", "chargeID", ch.ID)
		return nil
	}

	status := string(ch.Status)
	if ch.Refunded {
		status = billing.StatusRefunded
	}

	err := s.ledger.ApplyRefund(ctx, ch.PaymentIntent.ID, ch.AmountRefunded, status)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Warnw("Refund for payment missing from local ledger", "paymentIntentID", ch.PaymentIntent.ID)
		return nil
	}
	if err != nil {
		s.log.Errorw("Failed to apply refund from webhook", "error", err, "paymentIntentID", ch.PaymentIntent.ID)
		return err
	}
	s.log.Infow("Refund recorded from webhook", "paymentIntentID", ch.PaymentIntent.ID, "refunded", ch.AmountRefunded)

	// Возврат уже записан; без пользователя кеш доживет до TTL.
	userID, err := s.resolveUser(ctx, ch.Metadata, ch.Customer)
	if err != nil || userID == "" {
		return nil
	}
	s.invalidate(ctx, userID)
	return nil
}

// resolveUser: user_id из метаданных, иначе по связке с клиентом Stripe.
func (s *WebhookService) resolveUser(ctx context.Context, metadata map[string]string, customer *stripego.Customer) (string, error) {
	if userID := metadata["user_id"]; userID != "" {
		return userID, nil
	}
	if customer == nil || customer.ID == "" {
		return "", nil
	}

	userID, err := s.customers.GetUserID(ctx, customer.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		s.log.Errorw("Failed to resolve user by Stripe customer", "error", err, "stripeCustomerID", customer.ID)
		return "", err
	}
	return userID, nil
}

// Ошибка кеша не повод для повторной доставки события.
func (s *WebhookService) invalidate(ctx context.Context, userID string) {
	if s.subscriptions == nil {
		return
	}
	if err := s.subscriptions.InvalidateUser(ctx, userID); err != nil {
		s.log.Warnw("Failed to invalidate subscriptions after webhook", "error", err, "userID", userID)
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
