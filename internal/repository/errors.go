package repository

import (
	"errors"

	"github.com/Dhoini/Entitlement-service/internal/domain"
)

var (
	// ErrNotFound запись не найдена
	ErrNotFound = domain.ErrNotFound

	// ErrDuplicate дубликат записи
	ErrDuplicate = errors.New("duplicate record")
)
