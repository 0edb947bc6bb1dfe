package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/Dhoini/Entitlement-service/internal/services"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/Dhoini/Entitlement-service/pkg/req"
	"github.com/Dhoini/Entitlement-service/pkg/res"

	"github.com/gin-gonic/gin"
)

type CouponManager interface {
	List(ctx context.Context) ([]models.Coupon, error)
	Create(ctx context.Context, in services.CouponInput) (*models.Coupon, error)
	Rename(ctx context.Context, couponID, name string) (*models.Coupon, error)
	Delete(ctx context.Context, couponID string) error
}

type CouponHandler struct {
	coupons CouponManager
	log     *logger.Logger
}

func NewCouponHandler(coupons CouponManager, log *logger.Logger) *CouponHandler {
	return &CouponHandler{coupons: coupons, log: log}
}

type CreateCouponRequest struct {
	Name             string     `json:"name" validate:"omitempty,max=40"`
	Type             string     `json:"type" validate:"required,oneof=percent amount"`
	Value            float64    `json:"value"`
	Currency         string     `json:"currency" validate:"omitempty,len=3"`
	Duration         string     `json:"duration" validate:"required"`
	DurationInMonths int64      `json:"duration_in_months"`
	RedeemBy         *time.Time `json:"redeem_by"`
	MaxRedemptions   *int64     `json:"max_redemptions"`
}

type RenameCouponRequest struct {
	Name string `json:"name" validate:"required,max=40"`
}

type CouponListResponse struct {
	Coupons []models.Coupon `json:"coupons"`
}

// ListCoupons обрабатывает GET /admin/coupons
func (h *CouponHandler) ListCoupons(c *gin.Context) {
	coupons, err := h.coupons.List(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	res.JsonResponse(c.Writer, CouponListResponse{Coupons: coupons}, http.StatusOK)
}

// CreateCoupon обрабатывает POST /admin/coupons; правила значений проверяет сервис.
func (h *CouponHandler) CreateCoupon(c *gin.Context) {
	body, err := req.HandleBody[CreateCouponRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	coupon, err := h.coupons.Create(c.Request.Context(), services.CouponInput{
		Name:             body.Name,
		Type:             body.Type,
		Value:            body.Value,
		Currency:         body.Currency,
		Duration:         body.Duration,
		DurationInMonths: body.DurationInMonths,
		RedeemBy:         body.RedeemBy,
		MaxRedemptions:   body.MaxRedemptions,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	res.JsonResponse(c.Writer, coupon, http.StatusCreated)
}

// RenameCoupon обрабатывает PATCH /admin/coupons/:coupon_id
func (h *CouponHandler) RenameCoupon(c *gin.Context) {
	body, err := req.HandleBody[RenameCouponRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	coupon, err := h.coupons.Rename(c.Request.Context(), c.Param("coupon_id"), body.Name)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	res.JsonResponse(c.Writer, coupon, http.StatusOK)
}

// DeleteCoupon обрабатывает DELETE /admin/coupons/:coupon_id
func (h *CouponHandler) DeleteCoupon(c *gin.Context) {
	if err := h.coupons.Delete(c.Request.Context(), c.Param("coupon_id")); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
