package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/Dhoini/Entitlement-service/internal/repository"
	"github.com/Dhoini/Entitlement-service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	stripego "github.com/stripe/stripe-go/v78"
)

func stripeEvent(t *testing.T, typ stripego.EventType, object map[string]any) stripego.Event {
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return stripego.Event{ID: "evt_1", Type: typ, Data: &stripego.EventData{Raw: raw}}
}

func TestWebhookRecordsSucceededPayment(t *testing.T) {
	ledger := &ledgerMock{}
	customers := &customerMappingMock{}
	subs := &subsRepoMock{}
	svc := NewWebhookService(ledger, customers, subs, logger.NewNop())

	customers.On("GetUserID", mock.Anything, "cus_1").Return("user-1", nil).Once()
	subs.On("InvalidateUser", mock.Anything, "user-1").Return(nil).Once()
	ledger.On("Upsert", mock.Anything, mock.MatchedBy(func(rec *models.PaymentRecord) bool {
		return rec.UserID == "user-1" &&
			rec.StripePaymentIntentID != nil && *rec.StripePaymentIntentID == "pi_1" &&
			rec.Amount == 1200 && rec.Status == "succeeded" &&
			rec.SubscriptionID != nil && *rec.SubscriptionID == "sub-1" &&
			rec.PaidAt != nil
	})).Return(nil).Once()

	err := svc.HandleEvent(context.Background(), stripeEvent(t, EventPaymentIntentSucceeded, map[string]any{
		"id":       "pi_1",
		"object":   "payment_intent",
		"amount":   1200,
		"currency": "eur",
		"status":   "succeeded",
		"created":  1767225600,
		"customer": "cus_1",
		"metadata": map[string]string{"subscription_id": "sub-1"},
	}))
	require.NoError(t, err)
	ledger.AssertExpectations(t)
	customers.AssertExpectations(t)
	subs.AssertExpectations(t)
}

func TestWebhookSkipsPaymentWithoutUser(t *testing.T) {
	ledger := &ledgerMock{}
	customers := &customerMappingMock{}
	subs := &subsRepoMock{}
	svc := NewWebhookService(ledger, customers, subs, logger.NewNop())

	customers.On("GetUserID", mock.Anything, "cus_x").Return("", repository.ErrNotFound).Once()

	err := svc.HandleEvent(context.Background(), stripeEvent(t, EventPaymentIntentSucceeded, map[string]any{
		"id": "pi_2", "object": "payment_intent", "amount": 100, "customer": "cus_x",
	}))
	require.NoError(t, err)
	ledger.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	subs.AssertNotCalled(t, "InvalidateUser", mock.Anything, mock.Anything)
}

func TestWebhookAppliesRefund(t *testing.T) {
	ledger := &ledgerMock{}
	subs := &subsRepoMock{}
	svc := NewWebhookService(ledger, &customerMappingMock{}, subs, logger.NewNop())

	ledger.On("ApplyRefund", mock.Anything, "pi_1", int64(1200), "refunded").Return(nil).Once()
	ledger.On("ApplyRefund", mock.Anything, "pi_missing", int64(300), "succeeded").Return(repository.ErrNotFound).Once()

	require.NoError(t, svc.HandleEvent(context.Background(), stripeEvent(t, EventChargeRefunded, map[string]any{
		"id": "ch_1", "object": "charge", "amount_refunded": 1200, "refunded": true,
		"status": "succeeded", "payment_intent": "pi_1",
	})))
	require.NoError(t, svc.HandleEvent(context.Background(), stripeEvent(t, EventChargeRefunded, map[string]any{
		"id": "ch_2", "object": "charge", "amount_refunded": 300, "refunded": false,
		"status": "succeeded", "payment_intent": "pi_missing",
	})))
	ledger.AssertExpectations(t)
	subs.AssertNotCalled(t, "InvalidateUser", mock.Anything, mock.Anything)
}

func TestWebhookRefundInvalidatesSubscriptionCache(t *testing.T) {
	ledger := &ledgerMock{}
	subs := &subsRepoMock{}
	svc := NewWebhookService(ledger, &customerMappingMock{}, subs, logger.NewNop())

	ledger.On("ApplyRefund", mock.Anything, "pi_7", int64(500), "refunded").Return(nil).Once()
	subs.On("InvalidateUser", mock.Anything, "user-7").Return(errors.New("redis down")).Once()

	err := svc.HandleEvent(context.Background(), stripeEvent(t, EventChargeRefunded, map[string]any{
		"id": "ch_7", "object": "charge", "amount_refunded": 500, "refunded": true,
		"status": "succeeded", "payment_intent": "pi_7",
		"metadata": map[string]string{"user_id": "user-7"},
	}))
	require.NoError(t, err)
	ledger.AssertExpectations(t)
	subs.AssertExpectations(t)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	svc := NewWebhookService(&ledgerMock{}, &customerMappingMock{}, &subsRepoMock{}, logger.NewNop())
	assert.NoError(t, svc.HandleEvent(context.Background(), stripeEvent(t, "customer.created", map[string]any{"id": "cus_1"})))
}
