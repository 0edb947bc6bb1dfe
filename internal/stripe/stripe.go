package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/Dhoini/Entitlement-service/pkg/logger"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

const (
	// Ключ метаданных для связи Stripe Customer с вашим UserID
	metadataUserIDKey = "user_id"

	serviceName = "stripe"
)

// CustomerAPI поиск и создание клиентов.
type CustomerAPI interface {
	// GetOrCreateCustomer ищет клиента по user_id в метаданных, если не находит - создает нового.
	GetOrCreateCustomer(ctx context.Context, userID, email string) (string, error)
}

// PaymentAPI история платежей клиента.
type PaymentAPI interface {
	// ListPaymentIntents возвращает до limit последних PaymentIntent с раскрытым latest_charge.
	ListPaymentIntents(ctx context.Context, customerID string, limit int) ([]models.RemoteCharge, error)
}

// CatalogAPI цены и продукты каталога.
type CatalogAPI interface {
	CreatePrice(ctx context.Context, p NewPrice) (*models.PricedOffer, error)
	GetPrice(ctx context.Context, priceID string) (*models.PricedOffer, error)
	UpdatePrice(ctx context.Context, priceID string, upd PriceUpdate) (*models.PricedOffer, error)
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
	SetDefaultPrice(ctx context.Context, productID, priceID string) error
}

// CouponAPI купоны.
type CouponAPI interface {
	ListCoupons(ctx context.Context, limit int) ([]models.Coupon, error)
	CreateCoupon(ctx context.Context, c NewCoupon) (*models.Coupon, error)
	RenameCoupon(ctx context.Context, couponID, name string) (*models.Coupon, error)
	DeleteCoupon(ctx context.Context, couponID string) error
}

// Client определяет методы для взаимодействия со Stripe API.
type Client interface {
	CustomerAPI
	PaymentAPI
	CatalogAPI
	CouponAPI
}

// stripeClient реализует интерфейс Client.
type stripeClient struct {
	client *client.API
	log    *logger.Logger
}

// NewStripeClient создает явно сконфигурированный клиент; глобальный stripe.Key не используется.
func NewStripeClient(apiKey string, log *logger.Logger) Client {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &stripeClient{
		client: sc,
		log:    log,
	}
}

func (sc *stripeClient) createCustomer(ctx context.Context, userID, email string) (string, error) {
	params := &stripe.CustomerParams{
		Metadata: map[string]string{
			metadataUserIDKey: userID,
		},
	}
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.Context = ctx

	cus, err := sc.client.Customers.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateCustomer", err)
		return "", wrapStripeError("CreateCustomer", "failed to create customer", err)
	}

	sc.log.Infow("Stripe customer created", "stripeCustomerID", cus.ID, "userID", userID)
	return cus.ID, nil
}

var searchEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// customerSearchQuery строит запрос Search API; кавычки в userID экранируются.
func customerSearchQuery(userID string) string {
	return fmt.Sprintf("metadata['%s']:'%s'", metadataUserIDKey, searchEscaper.Replace(userID))
}

// GetOrCreateCustomer ищет клиента по метаданным через Search API, иначе создает.
func (sc *stripeClient) GetOrCreateCustomer(ctx context.Context, userID, email string) (string, error) {
	searchParams := &stripe.CustomerSearchParams{
		SearchParams: stripe.SearchParams{
			Query:   customerSearchQuery(userID),
			Limit:   stripe.Int64(1),
			Context: ctx,
		},
	}

	customers := sc.client.Customers.Search(searchParams)
	if customers.Next() {
		customer := customers.Customer()
		sc.log.Debugw("Found existing Stripe customer via Search", "stripeCustomerID", customer.ID, "userID", userID)
		return customer.ID, nil
	}

	if err := customers.Err(); err != nil {
		logStripeError(sc.log, "SearchCustomers", err)
		return "", wrapStripeError("SearchCustomers", "failed to search customer", err)
	}

	sc.log.Infow("Stripe customer not found via Search, creating new one", "userID", userID)
	return sc.createCustomer(ctx, userID, email)
}

// ListPaymentIntents читает PaymentIntent клиента, раскрывая последний charge для возвратов и чека.
func (sc *stripeClient) ListPaymentIntents(ctx context.Context, customerID string, limit int) ([]models.RemoteCharge, error) {
	if limit <= 0 {
		return nil, nil
	}

	params := &stripe.PaymentIntentListParams{
		Customer: stripe.String(customerID),
		ListParams: stripe.ListParams{
			Context: ctx,
			Limit:   stripe.Int64(int64(min(limit, 100))),
		},
	}
	params.AddExpand("data.latest_charge")

	charges := make([]models.RemoteCharge, 0, limit)
	it := sc.client.PaymentIntents.List(params)
	for len(charges) < limit && it.Next() {
		charges = append(charges, RemoteChargeFromIntent(it.PaymentIntent()))
	}
	if err := it.Err(); err != nil {
		logStripeError(sc.log, "ListPaymentIntents", err)
		return nil, wrapStripeError("ListPaymentIntents", "failed to list payment intents", err)
	}

	sc.log.Debugw("Loaded remote payment intents", "stripeCustomerID", customerID, "count", len(charges))
	return charges, nil
}

// logStripeError - вспомогательная функция для логирования деталей ошибки Stripe.
func logStripeError(log *logger.Logger, operation string, err error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		log.Errorw("Stripe API error",
			"operation", operation,
			"type", string(stripeErr.Type),
			"code", string(stripeErr.Code),
			"param", stripeErr.Param,
			"message", stripeErr.Msg,
			"request_id", stripeErr.RequestID,
			"status_code", stripeErr.HTTPStatusCode,
		)
	} else {
		log.Errorw("Non-Stripe error during Stripe operation",
			"operation", operation,
			"error", err,
		)
	}
}

// wrapStripeError заворачивает ошибку SDK в domain.ExternalServiceError.
func wrapStripeError(operation, message string, err error) error {
	status := 0
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		status = stripeErr.HTTPStatusCode
	}
	return domain.NewExternalServiceError(serviceName, operation, message, status, err)
}

// isResourceMissing true, если Stripe ответил resource_missing.
func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	return errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing
}
