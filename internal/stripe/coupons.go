package stripe

import (
	"context"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/models"

	"github.com/stripe/stripe-go/v78"
)

// NewCoupon параметры купона, уже прошедшие валидацию
type NewCoupon struct {
	Name             string
	PercentOff       float64
	AmountOff        int64
	Currency         string
	Duration         string
	DurationInMonths int64
	RedeemBy         *time.Time
	MaxRedemptions   int64
}

func (sc *stripeClient) ListCoupons(ctx context.Context, limit int) ([]models.Coupon, error) {
	params := &stripe.CouponListParams{
		ListParams: stripe.ListParams{
			Context: ctx,
			Limit:   stripe.Int64(int64(min(max(limit, 1), 100))),
		},
	}

	coupons := make([]models.Coupon, 0)
	it := sc.client.Coupons.List(params)
	for len(coupons) < limit && it.Next() {
		coupons = append(coupons, CouponFromStripe(it.Coupon()))
	}
	if err := it.Err(); err != nil {
		logStripeError(sc.log, "ListCoupons", err)
		return nil, wrapStripeError("ListCoupons", "failed to list coupons", err)
	}
	return coupons, nil
}

func (sc *stripeClient) CreateCoupon(ctx context.Context, c NewCoupon) (*models.Coupon, error) {
	params := &stripe.CouponParams{
		Duration: stripe.String(c.Duration),
	}
	if c.Name != "" {
		params.Name = stripe.String(c.Name)
	}
	if c.PercentOff > 0 {
		params.PercentOff = stripe.Float64(c.PercentOff)
	}
	if c.AmountOff > 0 {
		params.AmountOff = stripe.Int64(c.AmountOff)
		params.Currency = stripe.String(c.Currency)
	}
	if c.DurationInMonths > 0 {
		params.DurationInMonths = stripe.Int64(c.DurationInMonths)
	}
	if c.RedeemBy != nil {
		params.RedeemBy = stripe.Int64(c.RedeemBy.Unix())
	}
	if c.MaxRedemptions > 0 {
		params.MaxRedemptions = stripe.Int64(c.MaxRedemptions)
	}
	params.Context = ctx

	coupon, err := sc.client.Coupons.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateCoupon", err)
		return nil, wrapStripeError("CreateCoupon", "failed to create coupon", err)
	}

	sc.log.Infow("Stripe coupon created", "couponID", coupon.ID)
	out := CouponFromStripe(coupon)
	return &out, nil
}

// RenameCoupon у купона Stripe изменяемы только name и metadata.
func (sc *stripeClient) RenameCoupon(ctx context.Context, couponID, name string) (*models.Coupon, error) {
	params := &stripe.CouponParams{Name: stripe.String(name)}
	params.Context = ctx

	coupon, err := sc.client.Coupons.Update(couponID, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, domain.NewNotFoundError("coupon", couponID)
		}
		logStripeError(sc.log, "RenameCoupon", err)
		return nil, wrapStripeError("RenameCoupon", "failed to update coupon", err)
	}

	out := CouponFromStripe(coupon)
	return &out, nil
}

func (sc *stripeClient) DeleteCoupon(ctx context.Context, couponID string) error {
	params := &stripe.CouponParams{}
	params.Context = ctx

	if _, err := sc.client.Coupons.Del(couponID, params); err != nil {
		if isResourceMissing(err) {
			return domain.NewNotFoundError("coupon", couponID)
		}
		logStripeError(sc.log, "DeleteCoupon", err)
		return wrapStripeError("DeleteCoupon", "failed to delete coupon", err)
	}

	sc.log.Infow("Stripe coupon deleted", "couponID", couponID)
	return nil
}
