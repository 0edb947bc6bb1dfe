package repository

import (
	"context"

	"github.com/Dhoini/Entitlement-service/internal/models"
)

// PaymentLedger локальный журнал платежей.
type PaymentLedger interface {
	// ListByUser возвращает до limit записей по paid_at по убыванию; subscriptionID — необязательный фильтр.
	ListByUser(ctx context.Context, userID, subscriptionID string, limit int) ([]models.PaymentRecord, error)
	// Upsert вставляет или обновляет запись по stripe_payment_intent_id.
	Upsert(ctx context.Context, rec *models.PaymentRecord) error
	// ApplyRefund фиксирует сумму возврата; ErrNotFound, если платежа нет в журнале.
	ApplyRefund(ctx context.Context, paymentIntentID string, refunded int64, status string) error
}

// CustomerMapping связь пользователя с клиентом Stripe.
type CustomerMapping interface {
	GetStripeCustomerID(ctx context.Context, userID string) (string, error)
	GetUserID(ctx context.Context, stripeCustomerID string) (string, error)
	Save(ctx context.Context, userID, stripeCustomerID string) error
}
