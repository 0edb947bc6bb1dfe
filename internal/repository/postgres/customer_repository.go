package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dhoini/Entitlement-service/internal/repository"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCustomerRepository хранит соответствие пользователь -> клиент Stripe
type PostgresCustomerRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresCustomerRepository создает новый репозиторий клиентов через PostgreSQL
func NewPostgresCustomerRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresCustomerRepository {
	return &PostgresCustomerRepository{
		db:  db,
		log: log,
	}
}

var _ repository.CustomerMapping = (*PostgresCustomerRepository)(nil)

// GetStripeCustomerID возвращает id клиента Stripe для пользователя
func (r *PostgresCustomerRepository) GetStripeCustomerID(ctx context.Context, userID string) (string, error) {
	var id string
	err := r.db.QueryRow(ctx, `SELECT stripe_customer_id FROM customers WHERE user_id = $1`, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("failed to get customer: %w", err)
	}
	return id, nil
}

// GetUserID обратный поиск для вебхуков
func (r *PostgresCustomerRepository) GetUserID(ctx context.Context, stripeCustomerID string) (string, error) {
	var userID string
	err := r.db.QueryRow(ctx, `SELECT user_id FROM customers WHERE stripe_customer_id = $1`, stripeCustomerID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("failed to get customer by stripe id: %w", err)
	}
	return userID, nil
}

// Save создает или обновляет связь
func (r *PostgresCustomerRepository) Save(ctx context.Context, userID, stripeCustomerID string) error {
	query := `
		INSERT INTO customers (user_id, stripe_customer_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET stripe_customer_id = EXCLUDED.stripe_customer_id, updated_at = now()
	`

	if _, err := r.db.Exec(ctx, query, userID, stripeCustomerID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to save customer: %w", err)
	}

	r.log.Debugw("Customer mapping saved", "userID", userID, "stripeCustomerID", stripeCustomerID)
	return nil
}
