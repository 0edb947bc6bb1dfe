package repository

import (
	"context"
	"fmt"

	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/jmoiron/sqlx"
)

// postgresSubscriptionRepo реализует SubscriptionRepository для PostgreSQL.
type postgresSubscriptionRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresSubscriptionRepository создает новый экземпляр репозитория для PostgreSQL.
func NewPostgresSubscriptionRepository(db *sqlx.DB, log *logger.Logger) SubscriptionRepository {
	return &postgresSubscriptionRepo{
		db:  db,
		log: log,
	}
}

// GetByUserID возвращает все подписки пользователя.
// Статус разбирается в models.SubscriptionStatus прямо при сканировании строки.
func (r *postgresSubscriptionRepo) GetByUserID(ctx context.Context, userID string) ([]models.Subscription, error) {
	subs := []models.Subscription{}
	query := `
        SELECT id, user_id, plan_id, access_code, status, current_period_end,
               COALESCE(seats, 1) AS seats, created_at
        FROM subscriptions
        WHERE user_id = $1
        ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &subs, query, userID); err != nil {
		r.log.Errorw("Failed to get subscriptions by user ID from DB", "error", err, "userID", userID)
		return nil, fmt.Errorf("repository: failed to get subscriptions by user ID: %w", err)
	}

	r.log.Debugw("Successfully retrieved subscriptions by user ID", "userID", userID, "count", len(subs))
	return subs, nil
}

// InvalidateUser у репозитория без кеша ничего не делает.
func (r *postgresSubscriptionRepo) InvalidateUser(context.Context, string) error {
	return nil
}
