package stripe

import (
	"strings"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/models"

	"github.com/stripe/stripe-go/v78"
)

// RemoteChargeFromIntent проецирует PaymentIntent и его последний charge.
// Полностью возвращенный charge дает статус refunded.
func RemoteChargeFromIntent(pi *stripe.PaymentIntent) models.RemoteCharge {
	rc := models.RemoteCharge{
		ID:          pi.ID,
		Amount:      pi.Amount,
		Currency:    string(pi.Currency),
		Status:      string(pi.Status),
		Description: pi.Description,
	}
	if pi.Created > 0 {
		created := time.Unix(pi.Created, 0).UTC()
		rc.Created = &created
	}
	if ch := pi.LatestCharge; ch != nil {
		rc.RefundedAmount = ch.AmountRefunded
		rc.ReceiptURL = ch.ReceiptURL
		if ch.Refunded {
			rc.Status = "refunded"
		}
	}
	return rc
}

// OfferFromPrice проецирует Stripe Price в PricedOffer
func OfferFromPrice(p *stripe.Price) models.PricedOffer {
	offer := models.PricedOffer{
		ID:         p.ID,
		Active:     p.Active,
		UnitAmount: p.UnitAmount,
		Currency:   string(p.Currency),
		Type:       models.OfferOneTime,
		Nickname:   p.Nickname,
	}
	if p.Product != nil {
		offer.ProductID = p.Product.ID
	}
	if p.Type == stripe.PriceTypeRecurring || p.Recurring != nil {
		offer.Type = models.OfferRecurring
		if p.Recurring != nil {
			offer.Interval = string(p.Recurring.Interval)
		}
	}
	return offer
}

// ProductFromStripe проецирует продукт
func ProductFromStripe(p *stripe.Product) models.Product {
	out := models.Product{
		ID:     p.ID,
		Name:   p.Name,
		Active: p.Active,
	}
	if p.DefaultPrice != nil {
		out.DefaultPriceID = p.DefaultPrice.ID
	}
	return out
}

// CouponFromStripe проецирует купон; статус вычисляет сервис.
func CouponFromStripe(c *stripe.Coupon) models.Coupon {
	out := models.Coupon{
		ID:               c.ID,
		Name:             c.Name,
		PercentOff:       c.PercentOff,
		AmountOff:        c.AmountOff,
		Currency:         strings.ToLower(string(c.Currency)),
		Duration:         string(c.Duration),
		DurationInMonths: c.DurationInMonths,
		MaxRedemptions:   c.MaxRedemptions,
		TimesRedeemed:    c.TimesRedeemed,
		Valid:            c.Valid,
	}
	if c.RedeemBy > 0 {
		redeemBy := time.Unix(c.RedeemBy, 0).UTC()
		out.RedeemBy = &redeemBy
	}
	return out
}
