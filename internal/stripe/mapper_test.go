package stripe

import (
	"errors"
	"testing"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stripe/stripe-go/v78"
)

func TestRemoteChargeFromIntent(t *testing.T) {
	created := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	pi := &stripe.PaymentIntent{
		ID:          "pi_1",
		Amount:      2500,
		Currency:    stripe.CurrencyEUR,
		Status:      stripe.PaymentIntentStatusSucceeded,
		Created:     created.Unix(),
		Description: "Season pass",
		LatestCharge: &stripe.Charge{
			AmountRefunded: 500,
			ReceiptURL:     "https://pay.stripe.com/receipts/1",
		},
	}

	rc := RemoteChargeFromIntent(pi)
	assert.Equal(t, "pi_1", rc.ID)
	assert.Equal(t, int64(2500), rc.Amount)
	assert.Equal(t, "eur", rc.Currency)
	assert.Equal(t, "succeeded", rc.Status)
	assert.Equal(t, int64(500), rc.RefundedAmount)
	assert.Equal(t, "https://pay.stripe.com/receipts/1", rc.ReceiptURL)
	require.NotNil(t, rc.Created)
	assert.Equal(t, created, *rc.Created)

	pi.LatestCharge.Refunded = true
	assert.Equal(t, "refunded", RemoteChargeFromIntent(pi).Status)
}

func TestRemoteChargeWithoutCharge(t *testing.T) {
	rc := RemoteChargeFromIntent(&stripe.PaymentIntent{ID: "pi_2", Status: stripe.PaymentIntentStatusProcessing})
	assert.Nil(t, rc.Created)
	assert.Zero(t, rc.RefundedAmount)
	assert.Equal(t, "processing", rc.Status)
}

func TestOfferFromPrice(t *testing.T) {
	recurring := OfferFromPrice(&stripe.Price{
		ID:         "price_1",
		Active:     true,
		UnitAmount: 999,
		Currency:   stripe.CurrencyUSD,
		Type:       stripe.PriceTypeRecurring,
		Recurring:  &stripe.PriceRecurring{Interval: stripe.PriceRecurringIntervalYear},
		Product:    &stripe.Product{ID: "prod_1"},
		Nickname:   "Yearly",
	})
	assert.Equal(t, models.OfferRecurring, recurring.Type)
	assert.Equal(t, "year", recurring.Interval)
	assert.Equal(t, "prod_1", recurring.ProductID)

	oneTime := OfferFromPrice(&stripe.Price{ID: "price_2", Type: stripe.PriceTypeOneTime})
	assert.Equal(t, models.OfferOneTime, oneTime.Type)
	assert.Empty(t, oneTime.ProductID)
}

func TestProductAndCouponMapping(t *testing.T) {
	p := ProductFromStripe(&stripe.Product{ID: "prod_1", Name: "Seat", DefaultPrice: &stripe.Price{ID: "price_1"}})
	assert.Equal(t, "price_1", p.DefaultPriceID)

	redeemBy := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	c := CouponFromStripe(&stripe.Coupon{
		ID:             "SPRING",
		PercentOff:     20,
		Duration:       stripe.CouponDurationOnce,
		RedeemBy:       redeemBy.Unix(),
		MaxRedemptions: 10,
		TimesRedeemed:  3,
		Valid:          true,
	})
	assert.Equal(t, "once", c.Duration)
	require.NotNil(t, c.RedeemBy)
	assert.Equal(t, redeemBy, *c.RedeemBy)
	assert.Equal(t, int64(3), c.TimesRedeemed)
}

func TestWrapStripeError(t *testing.T) {
	err := wrapStripeError("GetPrice", "failed", &stripe.Error{HTTPStatusCode: 503, Msg: "unavailable"})

	var ext *domain.ExternalServiceError
	require.True(t, errors.As(err, &ext))
	assert.Equal(t, 503, ext.StatusCode)
	assert.Equal(t, "stripe", ext.Service)

	assert.True(t, isResourceMissing(&stripe.Error{Code: stripe.ErrorCodeResourceMissing}))
	assert.False(t, isResourceMissing(errors.New("x")))
}
