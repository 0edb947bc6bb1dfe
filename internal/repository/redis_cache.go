package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	userSubscriptionsKeyPrefix = "user_subscriptions:"

	defaultCacheTTL = 5 * time.Minute
)

// SubscriptionCache кеш списков подписок пользователя.
type SubscriptionCache interface {
	CacheUserSubscriptions(ctx context.Context, userID string, subs []models.Subscription) error
	GetCachedUserSubscriptions(ctx context.Context, userID string) ([]models.Subscription, error)
	InvalidateUserSubscriptionsCache(ctx context.Context, userID string) error
}

// RedisCacheRepository реализует кеширование для репозиториев с использованием Redis
type RedisCacheRepository struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisCacheRepository создает новый экземпляр Redis репозитория и проверяет соединение.
func NewRedisCacheRepository(ctx context.Context, opts *redis.Options, ttl time.Duration, log *logger.Logger) (*RedisCacheRepository, error) {
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		log.Errorw("Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	log.Infow("Connected to Redis successfully", "addr", opts.Addr)
	return &RedisCacheRepository{
		client: client,
		ttl:    ttl,
		log:    log,
	}, nil
}

// Close закрывает соединение с Redis
func (r *RedisCacheRepository) Close() error {
	return r.client.Close()
}

func userSubscriptionsKey(userID string) string {
	return userSubscriptionsKeyPrefix + userID
}

// CacheUserSubscriptions кеширует список подписок пользователя
func (r *RedisCacheRepository) CacheUserSubscriptions(ctx context.Context, userID string, subs []models.Subscription) error {
	data, err := json.Marshal(subs)
	if err != nil {
		return fmt.Errorf("failed to marshal user subscriptions: %w", err)
	}

	if err := r.client.Set(ctx, userSubscriptionsKey(userID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache user subscriptions: %w", err)
	}

	r.log.Debugw("User subscriptions cached successfully", "userID", userID, "count", len(subs))
	return nil
}

// GetCachedUserSubscriptions получает список подписок пользователя из кеша.
// Промах кеша — (nil, nil).
func (r *RedisCacheRepository) GetCachedUserSubscriptions(ctx context.Context, userID string) ([]models.Subscription, error) {
	data, err := r.client.Get(ctx, userSubscriptionsKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user subscriptions from cache: %w", err)
	}

	var subs []models.Subscription
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached user subscriptions: %w", err)
	}

	return subs, nil
}

// InvalidateUserSubscriptionsCache удаляет кеш подписок пользователя
func (r *RedisCacheRepository) InvalidateUserSubscriptionsCache(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, userSubscriptionsKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate user subscriptions cache: %w", err)
	}

	r.log.Debugw("User subscriptions cache invalidated", "userID", userID)
	return nil
}
