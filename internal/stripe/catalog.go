package stripe

import (
	"context"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/models"

	"github.com/stripe/stripe-go/v78"
)

// NewPrice параметры новой цены; сумма уже в минимальных единицах.
type NewPrice struct {
	ProductID  string
	UnitAmount int64
	Currency   string
	Type       models.OfferType
	Interval   string
	Nickname   string
}

// PriceUpdate изменяемые поля цены; nil — не трогать.
type PriceUpdate struct {
	Active   *bool
	Nickname *string
}

// CreatePrice создает цену. Не идемпотентно.
func (sc *stripeClient) CreatePrice(ctx context.Context, p NewPrice) (*models.PricedOffer, error) {
	params := &stripe.PriceParams{
		Product:    stripe.String(p.ProductID),
		UnitAmount: stripe.Int64(p.UnitAmount),
		Currency:   stripe.String(p.Currency),
	}
	if p.Nickname != "" {
		params.Nickname = stripe.String(p.Nickname)
	}
	if p.Type == models.OfferRecurring {
		params.Recurring = &stripe.PriceRecurringParams{
			Interval: stripe.String(p.Interval),
		}
	}
	params.Context = ctx

	price, err := sc.client.Prices.New(params)
	if err != nil {
		logStripeError(sc.log, "CreatePrice", err)
		return nil, wrapStripeError("CreatePrice", "failed to create price", err)
	}

	sc.log.Infow("Stripe price created", "priceID", price.ID, "productID", p.ProductID)
	offer := OfferFromPrice(price)
	return &offer, nil
}

// GetPrice читает цену
func (sc *stripeClient) GetPrice(ctx context.Context, priceID string) (*models.PricedOffer, error) {
	params := &stripe.PriceParams{}
	params.Context = ctx

	price, err := sc.client.Prices.Get(priceID, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, domain.NewNotFoundError("price", priceID)
		}
		logStripeError(sc.log, "GetPrice", err)
		return nil, wrapStripeError("GetPrice", "failed to get price", err)
	}

	offer := OfferFromPrice(price)
	return &offer, nil
}

// UpdatePrice меняет active/nickname
func (sc *stripeClient) UpdatePrice(ctx context.Context, priceID string, upd PriceUpdate) (*models.PricedOffer, error) {
	params := &stripe.PriceParams{
		Active:   upd.Active,
		Nickname: upd.Nickname,
	}
	params.Context = ctx

	price, err := sc.client.Prices.Update(priceID, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, domain.NewNotFoundError("price", priceID)
		}
		logStripeError(sc.log, "UpdatePrice", err)
		return nil, wrapStripeError("UpdatePrice", "failed to update price", err)
	}

	sc.log.Infow("Stripe price updated", "priceID", price.ID, "active", price.Active)
	offer := OfferFromPrice(price)
	return &offer, nil
}

// GetProduct читает продукт вместе с указателем на цену по умолчанию
func (sc *stripeClient) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	params := &stripe.ProductParams{}
	params.Context = ctx

	product, err := sc.client.Products.Get(productID, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, domain.NewNotFoundError("product", productID)
		}
		logStripeError(sc.log, "GetProduct", err)
		return nil, wrapStripeError("GetProduct", "failed to get product", err)
	}

	p := ProductFromStripe(product)
	return &p, nil
}

// SetDefaultPrice переключает default_price продукта
func (sc *stripeClient) SetDefaultPrice(ctx context.Context, productID, priceID string) error {
	params := &stripe.ProductParams{
		DefaultPrice: stripe.String(priceID),
	}
	params.Context = ctx

	if _, err := sc.client.Products.Update(productID, params); err != nil {
		logStripeError(sc.log, "SetDefaultPrice", err)
		return wrapStripeError("SetDefaultPrice", "failed to set default price", err)
	}

	sc.log.Infow("Stripe product default price set", "productID", productID, "priceID", priceID)
	return nil
}
