package service

import (
	"errors"
	"fmt"

	"totalhealth/backend/internal/domain"
	"totalhealth/backend/internal/store"
)

var ErrForbidden = errors.New("forbidden")

// ConflictError is a violated precondition the caller can resolve, such as
// settling the listed unpaid orders before closing the day.
type ConflictError struct {
	Reason       string
	UnpaidOrders []domain.UnpaidOrder
}

func (e *ConflictError) Error() string {
	if len(e.UnpaidOrders) > 0 {
		return fmt.Sprintf("%s (%d unpaid orders)", e.Reason, len(e.UnpaidOrders))
	}
	return e.Reason
}

func (e *ConflictError) Unwrap() error {
	return store.ErrConflict
}

func conflict(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrInvalidInput, fmt.Sprintf(format, args...))
}
