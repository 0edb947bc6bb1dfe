package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Dhoini/Entitlement-service/internal/billing"
	"github.com/Dhoini/Entitlement-service/internal/middleware"
	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/Dhoini/Entitlement-service/internal/services"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/Dhoini/Entitlement-service/pkg/res"

	"github.com/gin-gonic/gin"
)

const maxPageSize = 50

// PaymentHistory объединенная история платежей.
type PaymentHistory interface {
	FetchUserPayments(ctx context.Context, q services.PaymentQuery) (billing.Page, error)
}

// PaymentHandler обрабатывает HTTP запросы истории платежей (для Gin).
type PaymentHandler struct {
	service  PaymentHistory
	pageSize int
	log      *logger.Logger
}

// NewPaymentHandler создает новый экземпляр PaymentHandler.
func NewPaymentHandler(service PaymentHistory, pageSize int, log *logger.Logger) *PaymentHandler {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &PaymentHandler{
		service:  service,
		pageSize: pageSize,
		log:      log,
	}
}

type PaymentListResponse struct {
	Payments []models.MergedPayment `json:"payments"`
	Total    int                    `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
	HasPrev  bool                   `json:"has_prev"`
	HasNext  bool                   `json:"has_next"`
}

// ListPayments обрабатывает GET /payments?sid=&page=&page_size=
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	page, ok := positiveQuery(c, "page", 1)
	if !ok {
		return
	}
	size, ok := positiveQuery(c, "page_size", h.pageSize)
	if !ok {
		return
	}
	size = min(size, maxPageSize)

	result, err := h.service.FetchUserPayments(c.Request.Context(), services.PaymentQuery{
		UserID:         middleware.UserID(c),
		Email:          middleware.UserEmail(c),
		SubscriptionID: c.Query("sid"),
		Limit:          size,
		Offset:         billing.PageOffset(page, size),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	res.JsonResponse(c.Writer, PaymentListResponse{
		Payments: result.Payments,
		Total:    result.Total,
		Page:     page,
		PageSize: size,
		HasPrev:  result.HasPrev,
		HasNext:  result.HasNext,
	}, http.StatusOK)
}

func positiveQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: name + " must be a positive integer"}, http.StatusBadRequest)
		c.Abort()
		return 0, false
	}
	return v, true
}
