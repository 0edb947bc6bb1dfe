package req

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/Dhoini/Entitlement-service/pkg/res"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Decode декодирует JSON из io.ReadCloser в структуру типа T.
func Decode[T any](body io.ReadCloser) (T, error) {
	var payload T
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// IsValid валидирует структуру типа T по тегам validate.
func IsValid[T any](payload T) error {
	return validate.Struct(payload)
}

// HandleBody декодирует, валидирует и при ошибке сам пишет ответ 422.
func HandleBody[T any](w http.ResponseWriter, r *http.Request, log *logger.Logger) (*T, error) {
	body, err := Decode[T](r.Body)
	if err != nil {
		log.Warnw("Failed to decode request body", "error", err, "path", r.URL.Path)
		res.JsonResponse(w, res.ErrorResponse{Error: "Invalid request format"}, http.StatusUnprocessableEntity)
		return nil, err
	}

	if err := IsValid(body); err != nil {
		log.Warnw("Request body validation failed", "error", err, "path", r.URL.Path)
		res.JsonResponse(w, res.ErrorResponse{Error: "Invalid request data", Details: err.Error()}, http.StatusUnprocessableEntity)
		return nil, err
	}
	return &body, nil
}
