package handlers

import (
	"errors"
	"net/http"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/Dhoini/Entitlement-service/pkg/res"

	"github.com/gin-gonic/gin"
)

// StatusFor сопоставляет ошибку сервиса HTTP-статусу и короткому сообщению.
func StatusFor(err error) (int, string) {
	if _, ok := domain.AsValidation(err); ok {
		return http.StatusUnprocessableEntity, "Invalid request data"
	}

	var ext *domain.ExternalServiceError
	switch {
	case errors.Is(err, domain.ErrEntitlementExhausted):
		return http.StatusPaymentRequired, "No seats remaining"
	case errors.Is(err, domain.ErrCodeAlreadyUsed):
		return http.StatusConflict, "Access code already used"
	case errors.Is(err, domain.ErrCodeInvalid):
		return http.StatusUnprocessableEntity, "Access code is invalid"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrInvalidOperation):
		return http.StatusConflict, "Operation not allowed"
	case errors.Is(err, domain.ErrPartialInconsistency):
		return http.StatusMultiStatus, "Operation partially applied"
	case errors.Is(err, domain.ErrRemoteWriteFailed),
		errors.Is(err, domain.ErrExternalServiceUnavailable),
		errors.As(err, &ext):
		return http.StatusBadGateway, "Upstream service failed"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// writeError пишет ErrorResponse и прерывает цепочку Gin.
func writeError(c *gin.Context, log *logger.Logger, err error) {
	status, message := StatusFor(err)

	body := res.ErrorResponse{Error: message, ErrorCode: status}
	if verrs, ok := domain.AsValidation(err); ok {
		body.Details = verrs
	}
	if gin.Mode() == gin.DebugMode {
		body.DebugInfo = err.Error()
	}

	if status >= http.StatusInternalServerError {
		log.Errorw("Request failed", "error", err, "status", status, "path", c.Request.URL.Path)
	} else {
		log.Infow("Request rejected", "error", err, "status", status, "path", c.Request.URL.Path)
	}

	res.JsonResponse(c.Writer, body, status)
	c.Abort()
}
