package repository

import (
	"context"

	"github.com/Dhoini/Entitlement-service/internal/models"
)

// SubscriptionRepository определяет методы для чтения подписок пользователя.
type SubscriptionRepository interface {
	// GetByUserID возвращает все подписки пользователя, новые первыми.
	GetByUserID(ctx context.Context, userID string) ([]models.Subscription, error)

	// InvalidateUser сбрасывает закешированное представление подписок пользователя.
	InvalidateUser(ctx context.Context, userID string) error
}

// EntitlementStore — хранимые процедуры, владеющие арифметикой мест.
// Каждый вызов коммитится независимо.
type EntitlementStore interface {
	SeatsRemaining(ctx context.Context, userID string) (int, error)
	EnsureProfileServer(ctx context.Context, userID string) error
	CreateCodeSubscription(ctx context.Context, code, planID string) (models.ProcedureResult, error)
	RedeemAccessCode(ctx context.Context, code, userID, profileID string) (models.ProcedureResult, error)
	AssignFreeSeat(ctx context.Context, userID, profileID string) (models.ProcedureResult, error)
}
