package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/Dhoini/Entitlement-service/internal/services"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/Dhoini/Entitlement-service/pkg/req"
	"github.com/Dhoini/Entitlement-service/pkg/res"

	"github.com/gin-gonic/gin"
)

// OfferManager жизненный цикл цен каталога.
type OfferManager interface {
	Create(ctx context.Context, in services.OfferInput) (string, error)
	Replace(ctx context.Context, priorID string, in services.ReplaceInput) (string, error)
	SetDefault(ctx context.Context, productID, priceID string) error
	Patch(ctx context.Context, priceID string, patch services.OfferPatch) (*models.PricedOffer, error)
}

// OfferHandler административные операции с ценами.
type OfferHandler struct {
	offers OfferManager
	log    *logger.Logger
}

func NewOfferHandler(offers OfferManager, log *logger.Logger) *OfferHandler {
	return &OfferHandler{offers: offers, log: log}
}

type CreatePriceRequest struct {
	ProductID string  `json:"product_id" validate:"required"`
	Amount    float64 `json:"amount" validate:"gt=0"`
	Currency  string  `json:"currency" validate:"required,len=3"`
	Type      string  `json:"type" validate:"required,oneof=one_time recurring"`
	Interval  string  `json:"interval" validate:"omitempty,oneof=day week month year"`
	Nickname  string  `json:"nickname" validate:"omitempty,max=250"`
}

type ReplacePriceRequest struct {
	Amount      float64 `json:"amount" validate:"gt=0"`
	Currency    string  `json:"currency" validate:"required,len=3"`
	Type        string  `json:"type" validate:"required,oneof=one_time recurring"`
	Interval    string  `json:"interval" validate:"omitempty,oneof=day week month year"`
	Nickname    string  `json:"nickname" validate:"omitempty,max=250"`
	MakeDefault bool    `json:"make_default"`
}

type PatchPriceRequest struct {
	Active   *bool   `json:"active"`
	Nickname *string `json:"nickname" validate:"omitempty,max=250"`
}

type SetDefaultPriceRequest struct {
	PriceID string `json:"price_id" validate:"required"`
}

type PriceResponse struct {
	PriceID string `json:"price_id"`
	Error   string `json:"error,omitempty"`
}

// CreatePrice обрабатывает POST /admin/prices
func (h *OfferHandler) CreatePrice(c *gin.Context) {
	body, err := req.HandleBody[CreatePriceRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	priceID, err := h.offers.Create(c.Request.Context(), services.OfferInput{
		ProductID: body.ProductID,
		Amount:    body.Amount,
		Currency:  body.Currency,
		Type:      models.OfferType(body.Type),
		Interval:  body.Interval,
		Nickname:  body.Nickname,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	res.JsonResponse(c.Writer, PriceResponse{PriceID: priceID}, http.StatusCreated)
}

// PatchPrice обрабатывает PATCH /admin/prices/:price_id
func (h *OfferHandler) PatchPrice(c *gin.Context) {
	body, err := req.HandleBody[PatchPriceRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	offer, err := h.offers.Patch(c.Request.Context(), c.Param("price_id"), services.OfferPatch{
		Active:   body.Active,
		Nickname: body.Nickname,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	res.JsonResponse(c.Writer, offer, http.StatusOK)
}

// ReplacePrice обрабатывает POST /admin/prices/:price_id/replace.
// Частичная несогласованность отдается как 207 с id новой цены.
func (h *OfferHandler) ReplacePrice(c *gin.Context) {
	body, err := req.HandleBody[ReplacePriceRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	priceID, err := h.offers.Replace(c.Request.Context(), c.Param("price_id"), services.ReplaceInput{
		Amount:      body.Amount,
		Currency:    body.Currency,
		Type:        models.OfferType(body.Type),
		Interval:    body.Interval,
		Nickname:    body.Nickname,
		MakeDefault: body.MakeDefault,
	})
	if errors.Is(err, domain.ErrPartialInconsistency) {
		h.log.Errorw("Price replaced with partial inconsistency", "error", err, "newPriceID", priceID)
		res.JsonResponse(c.Writer, PriceResponse{PriceID: priceID, Error: err.Error()}, http.StatusMultiStatus)
		return
	}
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	res.JsonResponse(c.Writer, PriceResponse{PriceID: priceID}, http.StatusOK)
}

// SetDefaultPrice обрабатывает PUT /admin/products/:product_id/default-price
func (h *OfferHandler) SetDefaultPrice(c *gin.Context) {
	body, err := req.HandleBody[SetDefaultPriceRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	if err := h.offers.SetDefault(c.Request.Context(), c.Param("product_id"), body.PriceID); err != nil {
		writeError(c, h.log, err)
		return
	}
	res.JsonResponse(c.Writer, PriceResponse{PriceID: body.PriceID}, http.StatusOK)
}
