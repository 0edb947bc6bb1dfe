package postgres

import (
	"context"
	"fmt"

	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/Dhoini/Entitlement-service/internal/repository"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRepository — журнал платежей поверх pgxpool.
type PaymentRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPaymentRepository создает репозиторий журнала платежей
func NewPaymentRepository(db *pgxpool.Pool, log *logger.Logger) *PaymentRepository {
	return &PaymentRepository{db: db, log: log}
}

var _ repository.PaymentLedger = (*PaymentRepository)(nil)

// ListByUser возвращает последние платежи пользователя
func (r *PaymentRepository) ListByUser(ctx context.Context, userID, subscriptionID string, limit int) ([]models.PaymentRecord, error) {
	query := `
		SELECT id, user_id, subscription_id, stripe_payment_intent_id, amount, currency, status,
		       refunded_amount, receipt_url, description, paid_at
		FROM payments
		WHERE user_id = $1 AND ($2 = '' OR subscription_id = $2)
		ORDER BY paid_at DESC NULLS LAST, id DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, userID, subscriptionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.PaymentRecord])
	if err != nil {
		return nil, fmt.Errorf("failed to scan payments: %w", err)
	}

	r.log.Debugw("Loaded local payments", "userID", userID, "count", len(records))
	return records, nil
}

// Повторная доставка события не должна откатывать статус возврата.
const upsertPaymentQuery = `
	INSERT INTO payments (user_id, subscription_id, stripe_payment_intent_id, amount, currency, status,
	                      refunded_amount, receipt_url, description, paid_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (stripe_payment_intent_id) DO UPDATE SET
		status = CASE WHEN payments.status = 'refunded' THEN payments.status ELSE EXCLUDED.status END,
		amount = EXCLUDED.amount,
		currency = EXCLUDED.currency,
		refunded_amount = GREATEST(payments.refunded_amount, EXCLUDED.refunded_amount),
		receipt_url = COALESCE(EXCLUDED.receipt_url, payments.receipt_url),
		description = COALESCE(EXCLUDED.description, payments.description),
		paid_at = COALESCE(payments.paid_at, EXCLUDED.paid_at)
	RETURNING id
`

// Upsert сохраняет платеж из вебхука; повторная доставка события обновляет ту же строку.
func (r *PaymentRepository) Upsert(ctx context.Context, rec *models.PaymentRecord) error {
	err := r.db.QueryRow(ctx, upsertPaymentQuery,
		rec.UserID,
		rec.SubscriptionID,
		rec.StripePaymentIntentID,
		rec.Amount,
		rec.Currency,
		rec.Status,
		rec.RefundedAmount,
		rec.ReceiptURL,
		rec.Description,
		rec.PaidAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert payment: %w", err)
	}

	return nil
}

// ApplyRefund обновляет сумму возврата и статус
func (r *PaymentRepository) ApplyRefund(ctx context.Context, paymentIntentID string, refunded int64, status string) error {
	query := `
		UPDATE payments
		SET refunded_amount = $1, status = $2
		WHERE stripe_payment_intent_id = $3
	`

	result, err := r.db.Exec(ctx, query, refunded, status, paymentIntentID)
	if err != nil {
		return fmt.Errorf("failed to apply refund: %w", err)
	}

	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}
