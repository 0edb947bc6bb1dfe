package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/config"
	"github.com/Dhoini/Entitlement-service/internal/entitlement"
	"github.com/Dhoini/Entitlement-service/internal/metrics"
	"github.com/Dhoini/Entitlement-service/internal/repository"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
)

// SeatSummary сводка по местам пользователя
type SeatSummary struct {
	Remaining      int                         `json:"remaining"`
	RenewableCount int                         `json:"renewable_count"`
	RenewalFlow    entitlement.RenewalFlow     `json:"renewal_flow"`
	Renewable      []entitlement.RenewableSeat `json:"renewable"`
	HasActivePlan  bool                        `json:"has_active_plan"`
	WindowDays     int                         `json:"window_days"`
}

// SeatLedger читает баланс мест из хранилища.
type SeatLedger struct {
	cfg     *config.Config
	store   repository.EntitlementStore
	subs    repository.SubscriptionRepository
	metrics metrics.EntitlementMetrics
	log     *logger.Logger
	now     func() time.Time
}

func NewSeatLedger(
	cfg *config.Config,
	store repository.EntitlementStore,
	subs repository.SubscriptionRepository,
	m metrics.EntitlementMetrics,
	log *logger.Logger,
) *SeatLedger {
	return &SeatLedger{
		cfg:     cfg,
		store:   store,
		subs:    subs,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// RemainingSeats возвращает число свободных мест. Любая ошибка дает 0.
func (l *SeatLedger) RemainingSeats(ctx context.Context, userID string) int {
	remaining, err := l.store.SeatsRemaining(ctx, userID)
	if err != nil {
		l.log.Errorw("Failed to read remaining seats, treating as zero", "error", err, "userID", userID)
		l.metrics.IncSeatCheck(metrics.OutcomeError)
		return 0
	}
	if remaining < 0 {
		l.log.Warnw("Store reported negative seat balance", "userID", userID, "remaining", remaining)
		remaining = 0
	}

	outcome := metrics.OutcomeOK
	if remaining == 0 {
		outcome = metrics.OutcomeExhausted
	}
	l.metrics.IncSeatCheck(outcome)
	return remaining
}

// Summary собирает баланс и список мест на продление.
// windowDays < 0 — окно из конфигурации.
func (l *SeatLedger) Summary(ctx context.Context, userID string, windowDays int) (*SeatSummary, error) {
	if windowDays < 0 {
		windowDays = l.cfg.Seats.RenewalWindowDays
	}

	subs, err := l.subs.GetByUserID(ctx, userID)
	if err != nil {
		l.log.Errorw("Failed to load subscriptions for seat summary", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	now := l.now()
	window := entitlement.WindowFromDays(windowDays)
	renewable := entitlement.RenewableSeatList(subs, now, window)
	count := entitlement.RenewableSeatCount(subs, now, window)

	return &SeatSummary{
		Remaining:      l.RemainingSeats(ctx, userID),
		RenewableCount: count,
		RenewalFlow:    entitlement.SelectRenewalFlow(count),
		Renewable:      renewable,
		HasActivePlan:  entitlement.HasActivePlan(subs, now),
		WindowDays:     windowDays,
	}, nil
}
