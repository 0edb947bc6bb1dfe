package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dhoini/Entitlement-service/internal/billing"
	"github.com/Dhoini/Entitlement-service/internal/config"
	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/metrics"
	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/Dhoini/Entitlement-service/internal/repository"
	"github.com/Dhoini/Entitlement-service/internal/stripe"
	"github.com/Dhoini/Entitlement-service/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// PaymentQuery параметры выборки истории платежей
type PaymentQuery struct {
	UserID         string
	Email          string
	SubscriptionID string
	Limit          int
	Offset         int
}

// PaymentHistoryService сводит локальный журнал с историей Stripe.
type PaymentHistoryService struct {
	cfg       *config.Config
	ledger    repository.PaymentLedger
	customers repository.CustomerMapping
	stripe    stripe.Client
	metrics   metrics.EntitlementMetrics
	log       *logger.Logger
}

func NewPaymentHistoryService(
	cfg *config.Config,
	ledger repository.PaymentLedger,
	customers repository.CustomerMapping,
	stripeClient stripe.Client,
	m metrics.EntitlementMetrics,
	log *logger.Logger,
) *PaymentHistoryService {
	return &PaymentHistoryService{
		cfg:       cfg,
		ledger:    ledger,
		customers: customers,
		stripe:    stripeClient,
		metrics:   m,
		log:       log,
	}
}

// FetchUserPayments возвращает страницу объединенной истории.
// Оба источника читаются параллельно; ошибка любого из них проваливает запрос.
// С фильтром по подписке Stripe не опрашивается.
func (s *PaymentHistoryService) FetchUserPayments(ctx context.Context, q PaymentQuery) (billing.Page, error) {
	if q.Limit <= 0 {
		q.Limit = s.cfg.Payments.PageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	bound := billing.FetchBound(s.cfg.Payments.MaxFetch, q.Offset, q.Limit)

	var (
		local  []models.PaymentRecord
		remote []models.RemoteCharge
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.ledger.ListByUser(gctx, q.UserID, q.SubscriptionID, bound)
		if err != nil {
			s.log.Errorw("Failed to read local payment ledger", "error", err, "userID", q.UserID)
			return fmt.Errorf("local payment ledger: %w", err)
		}
		local = rows
		return nil
	})
	if q.SubscriptionID == "" {
		g.Go(func() error {
			customerID, err := s.resolveCustomer(gctx, q.UserID, q.Email)
			if err != nil {
				return err
			}
			charges, err := s.stripe.ListPaymentIntents(gctx, customerID, bound)
			if err != nil {
				return fmt.Errorf("%w: remote payment history: %w", domain.ErrExternalServiceUnavailable, err)
			}
			remote = charges
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return billing.Page{}, err
	}

	merged := billing.Merge(local, remote)
	s.metrics.ObservePaymentMerge(len(local), len(remote), len(merged))
	s.log.Debugw("Payment history merged",
		"userID", q.UserID, "local", len(local), "remote", len(remote), "merged", len(merged))

	return billing.Paginate(merged, q.Offset, q.Limit), nil
}

// resolveCustomer: локальная связка, затем поиск или создание клиента в Stripe.
func (s *PaymentHistoryService) resolveCustomer(ctx context.Context, userID, email string) (string, error) {
	customerID, err := s.customers.GetStripeCustomerID(ctx, userID)
	if err == nil && customerID != "" {
		return customerID, nil
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Warnw("Customer mapping lookup failed, falling back to Stripe search", "error", err, "userID", userID)
	}

	customerID, err = s.stripe.GetOrCreateCustomer(ctx, userID, email)
	if err != nil {
		return "", fmt.Errorf("%w: resolve stripe customer: %w", domain.ErrExternalServiceUnavailable, err)
	}

	if err := s.customers.Save(ctx, userID, customerID); err != nil {
		s.log.Warnw("Failed to save customer mapping", "error", err, "userID", userID, "stripeCustomerID", customerID)
	}
	return customerID, nil
}
