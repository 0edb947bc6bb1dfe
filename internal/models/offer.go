package models

import "time"

// OfferType тип цены в каталоге.
type OfferType string

const (
	OfferOneTime   OfferType = "one_time"
	OfferRecurring OfferType = "recurring"
)

// PricedOffer — цена (Stripe Price), привязанная к продукту каталога.
type PricedOffer struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	Active     bool      `json:"active"`
	UnitAmount int64     `json:"unit_amount"`
	Currency   string    `json:"currency"`
	Type       OfferType `json:"type"`
	Interval   string    `json:"interval,omitempty"`
	Nickname   string    `json:"nickname,omitempty"`
}

// Product — продукт каталога с указателем на цену по умолчанию.
type Product struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Active         bool   `json:"active"`
	DefaultPriceID string `json:"default_price_id,omitempty"`
}

// CouponStatus производный статус купона.
type CouponStatus string

const (
	CouponActive  CouponStatus = "active"
	CouponExpired CouponStatus = "expired"
	CouponMaxed   CouponStatus = "maxed"
)

// Coupon — проекция купона Stripe.
type Coupon struct {
	ID               string       `json:"id"`
	Name             string       `json:"name,omitempty"`
	PercentOff       float64      `json:"percent_off,omitempty"`
	AmountOff        int64        `json:"amount_off,omitempty"`
	Currency         string       `json:"currency,omitempty"`
	Duration         string       `json:"duration"`
	DurationInMonths int64        `json:"duration_in_months,omitempty"`
	RedeemBy         *time.Time   `json:"redeem_by,omitempty"`
	MaxRedemptions   int64        `json:"max_redemptions,omitempty"`
	TimesRedeemed    int64        `json:"times_redeemed"`
	Valid            bool         `json:"valid"`
	Status           CouponStatus `json:"status"`
}
