package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/billing"
	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/kafka"
	"github.com/Dhoini/Entitlement-service/internal/metrics"
	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/Dhoini/Entitlement-service/internal/stripe"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
)

var recurringIntervals = map[string]struct{}{
	"day": {}, "week": {}, "month": {}, "year": {},
}

// OfferInput параметры новой цены; сумма в основных единицах валюты.
type OfferInput struct {
	ProductID string
	Amount    float64
	Currency  string
	Type      models.OfferType
	Interval  string
	Nickname  string
}

// ReplaceInput параметры цены, которая заменит существующую.
type ReplaceInput struct {
	Amount      float64
	Currency    string
	Type        models.OfferType
	Interval    string
	Nickname    string
	MakeDefault bool
}

// OfferPatch частичное изменение цены; nil — поле не меняется.
type OfferPatch struct {
	Active   *bool
	Nickname *string
}

// OfferService управляет жизненным циклом цен каталога.
type OfferService struct {
	catalog  stripe.CatalogAPI
	producer kafka.Producer
	metrics  metrics.EntitlementMetrics
	log      *logger.Logger
	now      func() time.Time
}

func NewOfferService(catalog stripe.CatalogAPI, producer kafka.Producer, m metrics.EntitlementMetrics, log *logger.Logger) *OfferService {
	return &OfferService{
		catalog:  catalog,
		producer: producer,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// Create создает цену и возвращает ее id. Не идемпотентно.
func (s *OfferService) Create(ctx context.Context, in OfferInput) (string, error) {
	if verrs := ValidateOffer(in); verrs.HasErrors() {
		s.metrics.IncOfferOperation("create", metrics.OutcomeRejected)
		return "", verrs
	}

	currency := strings.ToLower(in.Currency)
	offer, err := s.catalog.CreatePrice(ctx, stripe.NewPrice{
		ProductID:  in.ProductID,
		UnitAmount: billing.ToMinorUnits(in.Amount, currency),
		Currency:   currency,
		Type:       in.Type,
		Interval:   in.Interval,
		Nickname:   in.Nickname,
	})
	if err != nil {
		s.metrics.IncOfferOperation("create", metrics.OutcomeError)
		return "", remoteWriteErr("create price", err)
	}

	s.metrics.IncOfferOperation("create", metrics.OutcomeOK)
	s.log.Infow("Priced offer created", "priceID", offer.ID, "productID", in.ProductID)
	return offer.ID, nil
}

// Archive деактивирует цену. Уже неактивная цена — успех без изменений.
// Текущую цену по умолчанию архивировать нельзя.
func (s *OfferService) Archive(ctx context.Context, priceID string) error {
	offer, err := s.catalog.GetPrice(ctx, priceID)
	if err != nil {
		s.metrics.IncOfferOperation("archive", metrics.OutcomeError)
		return err
	}
	if !offer.Active {
		s.metrics.IncOfferOperation("archive", metrics.OutcomeNoop)
		return nil
	}

	product, err := s.catalog.GetProduct(ctx, offer.ProductID)
	if err != nil {
		s.metrics.IncOfferOperation("archive", metrics.OutcomeError)
		return err
	}
	if product.DefaultPriceID == priceID {
		s.metrics.IncOfferOperation("archive", metrics.OutcomeRejected)
		return fmt.Errorf("%w: price %s is the default of product %s", domain.ErrInvalidOperation, priceID, product.ID)
	}

	if err := s.deactivate(ctx, priceID); err != nil {
		s.metrics.IncOfferOperation("archive", metrics.OutcomeError)
		return err
	}
	s.metrics.IncOfferOperation("archive", metrics.OutcomeOK)
	return nil
}

// Replace создает новую цену, при необходимости переносит на нее default и архивирует старую.
// Отката нет: если старую архивировать не удалось, возвращается id новой цены вместе с ErrPartialInconsistency.
func (s *OfferService) Replace(ctx context.Context, priorID string, in ReplaceInput) (string, error) {
	input := OfferInput{
		Amount:   in.Amount,
		Currency: in.Currency,
		Type:     in.Type,
		Interval: in.Interval,
		Nickname: in.Nickname,
	}
	if verrs := validateTerms(input); verrs.HasErrors() {
		s.metrics.IncOfferOperation("replace", metrics.OutcomeRejected)
		return "", verrs
	}

	prior, err := s.catalog.GetPrice(ctx, priorID)
	if err != nil {
		s.metrics.IncOfferOperation("replace", metrics.OutcomeError)
		return "", err
	}
	input.ProductID = prior.ProductID

	product, err := s.catalog.GetProduct(ctx, prior.ProductID)
	if err != nil {
		s.metrics.IncOfferOperation("replace", metrics.OutcomeError)
		return "", err
	}

	newID, err := s.Create(ctx, input)
	if err != nil {
		s.metrics.IncOfferOperation("replace", metrics.OutcomeError)
		return "", err
	}

	moveDefault := in.MakeDefault || product.DefaultPriceID == priorID
	if moveDefault {
		if err := s.catalog.SetDefaultPrice(ctx, product.ID, newID); err != nil {
			s.log.Errorw("Failed to move default price, previous price left active",
				"error", err, "productID", product.ID, "oldPriceID", priorID, "newPriceID", newID)
			s.metrics.IncOfferOperation("replace", metrics.OutcomeError)
			return newID, remoteWriteErr("set default price", err)
		}
	}

	if prior.Active {
		if err := s.deactivate(ctx, priorID); err != nil {
			s.log.Errorw("Offer replaced but previous price is still active",
				"error", err, "productID", product.ID, "oldPriceID", priorID, "newPriceID", newID)
			s.metrics.IncPartialInconsistency()
			s.metrics.IncOfferOperation("replace", metrics.OutcomeError)
			s.publish(ctx, kafka.TopicOfferInconsistent, product.ID, kafka.OfferInconsistentEvent{
				ProductID:  product.ID,
				OldPriceID: priorID,
				NewPriceID: newID,
				Error:      err.Error(),
				OccurredAt: s.now().UTC(),
			})
			return newID, fmt.Errorf("%w: price %s created but %s is still active: %w",
				domain.ErrPartialInconsistency, newID, priorID, err)
		}
	}

	s.publish(ctx, kafka.TopicOfferReplaced, product.ID, kafka.OfferReplacedEvent{
		ProductID:    product.ID,
		OldPriceID:   priorID,
		NewPriceID:   newID,
		DefaultMoved: moveDefault,
		OccurredAt:   s.now().UTC(),
	})
	s.metrics.IncOfferOperation("replace", metrics.OutcomeOK)
	s.log.Infow("Priced offer replaced", "productID", product.ID, "oldPriceID", priorID, "newPriceID", newID)
	return newID, nil
}

// SetDefault делает цену ценой по умолчанию продукта. Цена должна быть активной и принадлежать продукту.
func (s *OfferService) SetDefault(ctx context.Context, productID, priceID string) error {
	offer, err := s.catalog.GetPrice(ctx, priceID)
	if err != nil {
		s.metrics.IncOfferOperation("set_default", metrics.OutcomeError)
		return err
	}
	if !offer.Active {
		s.metrics.IncOfferOperation("set_default", metrics.OutcomeRejected)
		return fmt.Errorf("%w: price %s is archived", domain.ErrInvalidOperation, priceID)
	}
	if offer.ProductID != productID {
		s.metrics.IncOfferOperation("set_default", metrics.OutcomeRejected)
		return fmt.Errorf("%w: price %s does not belong to product %s", domain.ErrInvalidOperation, priceID, productID)
	}

	if err := s.catalog.SetDefaultPrice(ctx, productID, priceID); err != nil {
		s.metrics.IncOfferOperation("set_default", metrics.OutcomeError)
		return remoteWriteErr("set default price", err)
	}
	s.metrics.IncOfferOperation("set_default", metrics.OutcomeOK)
	return nil
}

// Patch меняет active/nickname. active=false проходит через Archive.
func (s *OfferService) Patch(ctx context.Context, priceID string, patch OfferPatch) (*models.PricedOffer, error) {
	if patch.Active == nil && patch.Nickname == nil {
		var verrs domain.ValidationErrors
		verrs.Add("body", "nothing to update")
		return nil, verrs
	}

	upd := stripe.PriceUpdate{Nickname: patch.Nickname}
	if patch.Active != nil {
		if !*patch.Active {
			if err := s.Archive(ctx, priceID); err != nil {
				return nil, err
			}
		} else {
			upd.Active = patch.Active
		}
	}

	if upd.Active == nil && upd.Nickname == nil {
		return s.catalog.GetPrice(ctx, priceID)
	}

	offer, err := s.catalog.UpdatePrice(ctx, priceID, upd)
	if err != nil {
		s.metrics.IncOfferOperation("patch", metrics.OutcomeError)
		return nil, remoteWriteErr("update price", err)
	}
	s.metrics.IncOfferOperation("patch", metrics.OutcomeOK)
	return offer, nil
}

func (s *OfferService) deactivate(ctx context.Context, priceID string) error {
	inactive := false
	if _, err := s.catalog.UpdatePrice(ctx, priceID, stripe.PriceUpdate{Active: &inactive}); err != nil {
		return remoteWriteErr("archive price", err)
	}
	s.log.Infow("Priced offer archived", "priceID", priceID)
	return nil
}

func (s *OfferService) publish(ctx context.Context, topic, key string, event any) {
	if err := s.producer.Publish(ctx, topic, key, event); err != nil {
		s.log.Warnw("Failed to publish offer event", "error", err, "topic", topic)
	}
}

// ValidateOffer проверяет параметры цены до обращения к Stripe
func ValidateOffer(in OfferInput) domain.ValidationErrors {
	var verrs domain.ValidationErrors

	if strings.TrimSpace(in.ProductID) == "" {
		verrs.Add("product_id", "is required")
	}
	verrs = append(verrs, validateTerms(in)...)
	return verrs
}

// validateTerms проверяет сумму, валюту и периодичность; от продукта не зависит.
func validateTerms(in OfferInput) domain.ValidationErrors {
	var verrs domain.ValidationErrors

	if in.Amount <= 0 {
		verrs.Add("amount", "must be positive")
	}
	if !billing.IsCurrencyCode(in.Currency) {
		verrs.Add("currency", "must be a 3-letter ISO code")
	}

	switch in.Type {
	case models.OfferRecurring:
		if _, ok := recurringIntervals[in.Interval]; !ok {
			verrs.Add("interval", "must be one of day, week, month, year")
		}
	case models.OfferOneTime:
		if in.Interval != "" {
			verrs.Add("interval", "is only allowed for recurring prices")
		}
	default:
		verrs.Add("type", "must be one_time or recurring")
	}
	return verrs
}

// remoteWriteErr сохраняет NotFound в цепочке, чтобы обработчик вернул 404.
func remoteWriteErr(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrRemoteWriteFailed, op, err)
}
