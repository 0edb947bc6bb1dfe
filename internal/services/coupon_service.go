package services

import (
	"context"
	"strings"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/billing"
	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/Dhoini/Entitlement-service/internal/stripe"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
)

const (
	CouponTypePercent = "percent"
	CouponTypeAmount  = "amount"

	couponListLimit = 100
)

var couponDurations = map[string]struct{}{
	"once": {}, "repeating": {}, "forever": {},
}

// CouponInput параметры нового купона; amount в основных единицах валюты.
type CouponInput struct {
	Name             string
	Type             string
	Value            float64
	Currency         string
	Duration         string
	DurationInMonths int64
	RedeemBy         *time.Time
	MaxRedemptions   *int64
}

// CouponService администрирование купонов
type CouponService struct {
	coupons stripe.CouponAPI
	log     *logger.Logger
	now     func() time.Time
}

func NewCouponService(coupons stripe.CouponAPI, log *logger.Logger) *CouponService {
	return &CouponService{coupons: coupons, log: log, now: time.Now}
}

// List возвращает купоны с вычисленным статусом
func (s *CouponService) List(ctx context.Context) ([]models.Coupon, error) {
	coupons, err := s.coupons.ListCoupons(ctx, couponListLimit)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range coupons {
		coupons[i].Status = CouponStatus(coupons[i], now)
	}
	return coupons, nil
}

func (s *CouponService) Create(ctx context.Context, in CouponInput) (*models.Coupon, error) {
	now := s.now()
	if verrs := ValidateCoupon(in, now); verrs.HasErrors() {
		return nil, verrs
	}

	params := stripe.NewCoupon{
		Name:     strings.TrimSpace(in.Name),
		Duration: in.Duration,
		RedeemBy: in.RedeemBy,
	}
	if in.Duration == "repeating" {
		params.DurationInMonths = in.DurationInMonths
	}
	if in.MaxRedemptions != nil {
		params.MaxRedemptions = *in.MaxRedemptions
	}
	switch in.Type {
	case CouponTypePercent:
		params.PercentOff = in.Value
	case CouponTypeAmount:
		params.Currency = strings.ToLower(in.Currency)
		params.AmountOff = billing.ToMinorUnits(in.Value, params.Currency)
	}

	coupon, err := s.coupons.CreateCoupon(ctx, params)
	if err != nil {
		return nil, remoteWriteErr("create coupon", err)
	}
	coupon.Status = CouponStatus(*coupon, now)
	s.log.Infow("Coupon created", "couponID", coupon.ID, "type", in.Type)
	return coupon, nil
}

// Rename у купона меняется только имя
func (s *CouponService) Rename(ctx context.Context, couponID, name string) (*models.Coupon, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		var verrs domain.ValidationErrors
		verrs.Add("name", "is required")
		return nil, verrs
	}

	coupon, err := s.coupons.RenameCoupon(ctx, couponID, name)
	if err != nil {
		return nil, remoteWriteErr("rename coupon", err)
	}
	coupon.Status = CouponStatus(*coupon, s.now())
	return coupon, nil
}

func (s *CouponService) Delete(ctx context.Context, couponID string) error {
	if err := s.coupons.DeleteCoupon(ctx, couponID); err != nil {
		return remoteWriteErr("delete coupon", err)
	}
	return nil
}

// CouponStatus: expired важнее maxed.
func CouponStatus(c models.Coupon, now time.Time) models.CouponStatus {
	if !c.Valid || (c.RedeemBy != nil && c.RedeemBy.Before(now)) {
		return models.CouponExpired
	}
	if c.MaxRedemptions > 0 && c.TimesRedeemed >= c.MaxRedemptions {
		return models.CouponMaxed
	}
	return models.CouponActive
}

// ValidateCoupon проверяет параметры купона до обращения к Stripe
func ValidateCoupon(in CouponInput, now time.Time) domain.ValidationErrors {
	var verrs domain.ValidationErrors

	switch in.Type {
	case CouponTypePercent:
		if in.Value <= 0 || in.Value > 100 {
			verrs.Add("value", "percent must be greater than 0 and at most 100")
		}
	case CouponTypeAmount:
		if in.Value <= 0 {
			verrs.Add("value", "amount must be positive")
		}
		if !billing.IsCurrencyCode(in.Currency) {
			verrs.Add("currency", "must be a 3-letter ISO code for amount coupons")
		}
	default:
		verrs.Add("type", "must be percent or amount")
	}

	if _, ok := couponDurations[in.Duration]; !ok {
		verrs.Add("duration", "must be one of once, repeating, forever")
	} else if in.Duration == "repeating" && in.DurationInMonths <= 0 {
		verrs.Add("duration_in_months", "must be positive for repeating coupons")
	}

	if in.RedeemBy != nil && !in.RedeemBy.After(now) {
		verrs.Add("redeem_by", "must be in the future")
	}
	if in.MaxRedemptions != nil && *in.MaxRedemptions <= 0 {
		verrs.Add("max_redemptions", "must be positive")
	}
	return verrs
}
