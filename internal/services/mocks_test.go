package services

import (
	"context"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/config"
	"github.com/Dhoini/Entitlement-service/internal/metrics"
	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/Dhoini/Entitlement-service/internal/stripe"
	"github.com/Dhoini/Entitlement-service/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Seats.RenewalWindowDays = 30
	cfg.Redemption.FreePlanID = "free"
	cfg.Redemption.OrphanTimeout = 15 * time.Minute
	cfg.Redemption.OrphanMaxAge = 24 * time.Hour
	cfg.Redemption.ReconcileSchedule = "@every 5m"
	cfg.Payments.MaxFetch = 50
	cfg.Payments.PageSize = 10
	return cfg
}

func testMetrics() metrics.EntitlementMetrics {
	return metrics.NewEntitlementMetrics(prometheus.NewRegistry(), logger.NewNop())
}

type storeMock struct{ mock.Mock }

func (m *storeMock) SeatsRemaining(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *storeMock) EnsureProfileServer(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *storeMock) CreateCodeSubscription(ctx context.Context, code, planID string) (models.ProcedureResult, error) {
	args := m.Called(ctx, code, planID)
	return args.Get(0).(models.ProcedureResult), args.Error(1)
}

func (m *storeMock) RedeemAccessCode(ctx context.Context, code, userID, profileID string) (models.ProcedureResult, error) {
	args := m.Called(ctx, code, userID, profileID)
	return args.Get(0).(models.ProcedureResult), args.Error(1)
}

func (m *storeMock) AssignFreeSeat(ctx context.Context, userID, profileID string) (models.ProcedureResult, error) {
	args := m.Called(ctx, userID, profileID)
	return args.Get(0).(models.ProcedureResult), args.Error(1)
}

type profileRepoMock struct{ mock.Mock }

func (m *profileRepoMock) Create(ctx context.Context, p *models.DependentProfile) error {
	return m.Called(ctx, p).Error(0)
}

func (m *profileRepoMock) GetByRedemptionKey(ctx context.Context, userID, key string) (*models.DependentProfile, error) {
	args := m.Called(ctx, userID, key)
	p, _ := args.Get(0).(*models.DependentProfile)
	return p, args.Error(1)
}

func (m *profileRepoMock) MarkState(ctx context.Context, profileID string, state models.EntitlementState) error {
	return m.Called(ctx, profileID, state).Error(0)
}

func (m *profileRepoMock) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]models.DependentProfile, error) {
	args := m.Called(ctx, createdBefore, limit)
	p, _ := args.Get(0).([]models.DependentProfile)
	return p, args.Error(1)
}

type subsRepoMock struct{ mock.Mock }

func (m *subsRepoMock) GetByUserID(ctx context.Context, userID string) ([]models.Subscription, error) {
	args := m.Called(ctx, userID)
	subs, _ := args.Get(0).([]models.Subscription)
	return subs, args.Error(1)
}

func (m *subsRepoMock) InvalidateUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type producerMock struct{ mock.Mock }

func (m *producerMock) Publish(ctx context.Context, topic, key string, payload any) error {
	return m.Called(ctx, topic, key, payload).Error(0)
}

func (m *producerMock) Close() error { return nil }

type catalogMock struct{ mock.Mock }

func (m *catalogMock) CreatePrice(ctx context.Context, p stripe.NewPrice) (*models.PricedOffer, error) {
	args := m.Called(ctx, p)
	o, _ := args.Get(0).(*models.PricedOffer)
	return o, args.Error(1)
}

func (m *catalogMock) GetPrice(ctx context.Context, priceID string) (*models.PricedOffer, error) {
	args := m.Called(ctx, priceID)
	o, _ := args.Get(0).(*models.PricedOffer)
	return o, args.Error(1)
}

func (m *catalogMock) UpdatePrice(ctx context.Context, priceID string, upd stripe.PriceUpdate) (*models.PricedOffer, error) {
	args := m.Called(ctx, priceID, upd)
	o, _ := args.Get(0).(*models.PricedOffer)
	return o, args.Error(1)
}

func (m *catalogMock) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	args := m.Called(ctx, productID)
	p, _ := args.Get(0).(*models.Product)
	return p, args.Error(1)
}

func (m *catalogMock) SetDefaultPrice(ctx context.Context, productID, priceID string) error {
	return m.Called(ctx, productID, priceID).Error(0)
}

type couponMock struct{ mock.Mock }

func (m *couponMock) ListCoupons(ctx context.Context, limit int) ([]models.Coupon, error) {
	args := m.Called(ctx, limit)
	c, _ := args.Get(0).([]models.Coupon)
	return c, args.Error(1)
}

func (m *couponMock) CreateCoupon(ctx context.Context, c stripe.NewCoupon) (*models.Coupon, error) {
	args := m.Called(ctx, c)
	out, _ := args.Get(0).(*models.Coupon)
	return out, args.Error(1)
}

func (m *couponMock) RenameCoupon(ctx context.Context, couponID, name string) (*models.Coupon, error) {
	args := m.Called(ctx, couponID, name)
	out, _ := args.Get(0).(*models.Coupon)
	return out, args.Error(1)
}

func (m *couponMock) DeleteCoupon(ctx context.Context, couponID string) error {
	return m.Called(ctx, couponID).Error(0)
}

type ledgerMock struct{ mock.Mock }

func (m *ledgerMock) ListByUser(ctx context.Context, userID, subscriptionID string, limit int) ([]models.PaymentRecord, error) {
	args := m.Called(ctx, userID, subscriptionID, limit)
	rows, _ := args.Get(0).([]models.PaymentRecord)
	return rows, args.Error(1)
}

func (m *ledgerMock) Upsert(ctx context.Context, rec *models.PaymentRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *ledgerMock) ApplyRefund(ctx context.Context, paymentIntentID string, refunded int64, status string) error {
	return m.Called(ctx, paymentIntentID, refunded, status).Error(0)
}

type customerMappingMock struct{ mock.Mock }

func (m *customerMappingMock) GetStripeCustomerID(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *customerMappingMock) GetUserID(ctx context.Context, stripeCustomerID string) (string, error) {
	args := m.Called(ctx, stripeCustomerID)
	return args.String(0), args.Error(1)
}

func (m *customerMappingMock) Save(ctx context.Context, userID, stripeCustomerID string) error {
	return m.Called(ctx, userID, stripeCustomerID).Error(0)
}

// paymentsStripeMock реализует только методы истории платежей; остальные паникуют через nil-интерфейс.
type paymentsStripeMock struct {
	stripe.Client
	mock.Mock
}

func (m *paymentsStripeMock) GetOrCreateCustomer(ctx context.Context, userID, email string) (string, error) {
	args := m.Called(ctx, userID, email)
	return args.String(0), args.Error(1)
}

func (m *paymentsStripeMock) ListPaymentIntents(ctx context.Context, customerID string, limit int) ([]models.RemoteCharge, error) {
	args := m.Called(ctx, customerID, limit)
	rows, _ := args.Get(0).([]models.RemoteCharge)
	return rows, args.Error(1)
}
