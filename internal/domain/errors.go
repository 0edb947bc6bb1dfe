package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Application errors
var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")

	// ErrForbidden у пользователя нет прав администратора
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidOperation операция недопустима в текущем состоянии
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrExternalServiceUnavailable внешний сервис недоступен
	ErrExternalServiceUnavailable = errors.New("external service unavailable")

	// ErrEntitlementExhausted нет свободных мест и не передан код доступа
	ErrEntitlementExhausted = errors.New("no seats remaining")

	// ErrCodeInvalid код доступа не существует или не подходит
	ErrCodeInvalid = errors.New("access code is invalid")

	// ErrCodeAlreadyUsed код доступа уже использован
	ErrCodeAlreadyUsed = errors.New("access code already used")

	// ErrRemoteWriteFailed удаленная процедура или вызов каталога завершились ошибкой
	ErrRemoteWriteFailed = errors.New("remote write failed")

	// ErrPartialInconsistency новая цена создана, но старая не архивирована
	ErrPartialInconsistency = errors.New("partial inconsistency")
)

// ValidationError представляет ошибку валидации
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors представляет набор ошибок валидации
type ValidationErrors []ValidationError

// Error реализует интерфейс error
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}

	if len(e) == 1 {
		return fmt.Sprintf("validation failed: %s - %s", e[0].Field, e[0].Message)
	}

	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = v.Field + " - " + v.Message
	}
	return fmt.Sprintf("validation failed: %d errors (%s)", len(e), strings.Join(parts, "; "))
}

// Add добавляет ошибку валидации
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// HasErrors проверяет наличие ошибок
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Fields возвращает список полей с ошибками
func (e ValidationErrors) Fields() []string {
	fields := make([]string, len(e))
	for i, err := range e {
		fields[i] = err.Field
	}
	return fields
}

// GetByField возвращает сообщение об ошибке для указанного поля
func (e ValidationErrors) GetByField(field string) string {
	for _, err := range e {
		if err.Field == field {
			return err.Message
		}
	}
	return ""
}

// AsValidation достает ValidationErrors из цепочки ошибок.
func AsValidation(err error) (ValidationErrors, bool) {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	return nil, false
}

// ExternalServiceError представляет ошибку внешнего сервиса
type ExternalServiceError struct {
	Service     string
	Operation   string
	Message     string
	StatusCode  int
	OriginalErr error
}

// Error реализует интерфейс error
func (e *ExternalServiceError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s service error [%s]: %s: %v", e.Service, e.Operation, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("%s service error [%s]: %s", e.Service, e.Operation, e.Message)
}

// Unwrap возвращает оригинальную ошибку
func (e *ExternalServiceError) Unwrap() error {
	return e.OriginalErr
}

// NewExternalServiceError создает новую ошибку внешнего сервиса
func NewExternalServiceError(service, operation, message string, statusCode int, err error) *ExternalServiceError {
	return &ExternalServiceError{
		Service:     service,
		Operation:   operation,
		Message:     message,
		StatusCode:  statusCode,
		OriginalErr: err,
	}
}

// NotFoundError представляет ошибку "не найдено"
type NotFoundError struct {
	Entity string
	ID     string
}

// Error реализует интерфейс error
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Entity, e.ID)
}

// Is проверяет, является ли ошибка ошибкой типа "не найдено"
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError создает новую ошибку "не найдено"
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}
