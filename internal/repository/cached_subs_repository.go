package repository

import (
	"context"

	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
)

// CachedSubscriptionRepository реализует SubscriptionRepository с кешированием.
// Ошибки кеша только логируются: источник правды — база.
type CachedSubscriptionRepository struct {
	repo  SubscriptionRepository
	cache SubscriptionCache
	log   *logger.Logger
}

// NewCachedSubscriptionRepository создает новый репозиторий с кешированием
func NewCachedSubscriptionRepository(
	repo SubscriptionRepository,
	cache SubscriptionCache,
	log *logger.Logger,
) SubscriptionRepository {
	return &CachedSubscriptionRepository{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// GetByUserID возвращает подписки пользователя (сначала из кеша, потом из БД)
func (r *CachedSubscriptionRepository) GetByUserID(ctx context.Context, userID string) ([]models.Subscription, error) {
	cachedSubs, err := r.cache.GetCachedUserSubscriptions(ctx, userID)
	if err != nil {
		r.log.Warnw("Error getting user subscriptions from cache", "error", err, "userID", userID)
	}

	if len(cachedSubs) > 0 {
		r.log.Debugw("User subscriptions found in cache", "userID", userID, "count", len(cachedSubs))
		return cachedSubs, nil
	}

	subs, err := r.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(subs) > 0 {
		if err := r.cache.CacheUserSubscriptions(ctx, userID, subs); err != nil {
			r.log.Warnw("Failed to cache user subscriptions", "error", err, "userID", userID)
		}
	}

	return subs, nil
}

// InvalidateUser сбрасывает кеш после погашения места
func (r *CachedSubscriptionRepository) InvalidateUser(ctx context.Context, userID string) error {
	if err := r.cache.InvalidateUserSubscriptionsCache(ctx, userID); err != nil {
		r.log.Warnw("Failed to invalidate user subscriptions cache", "error", err, "userID", userID)
		return err
	}
	return r.repo.InvalidateUser(ctx, userID)
}
