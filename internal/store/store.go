package store

import (
	"context"
	"errors"
	"time"

	"totalhealth/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

// ShiftFilter narrows ListShifts. Date matches startDate exactly; From/To
// bound startDate inclusively. Empty fields do not filter.
type ShiftFilter struct {
	BranchID string
	Date     string
	From     string
	To       string
	Status   string
	Limit    int
}

// DayCloseCommit is everything a day-close writes. Repositories apply it
// atomically: either every shift transition, the optional DayClose and the
// DaySales are stored, or nothing is.
type DayCloseCommit struct {
	BranchID string
	Date     string
	Shifts   []domain.Shift
	DayClose *domain.DayClose
	DaySales domain.DaySales
}

type Repository interface {
	CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	UpdateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	// ListOrdersTouched returns orders of branchID created or updated within
	// [from, to]. An empty branchID matches every branch.
	ListOrdersTouched(ctx context.Context, branchID string, from time.Time, to time.Time) ([]domain.Order, error)
	// ListUnpaidOrders returns non-canceled, non-deleted unpaid or partially
	// paid orders of branchID created within [from, to].
	ListUnpaidOrders(ctx context.Context, branchID string, from time.Time, to time.Time) ([]domain.Order, error)

	CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error)
	GetOpenShift(ctx context.Context, branchID string) (*domain.Shift, error)
	GetShiftByID(ctx context.Context, id string) (*domain.Shift, error)
	MaxShiftNumber(ctx context.Context, branchID string, date string) (int, error)
	CloseOpenShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error)
	ListShifts(ctx context.Context, filter ShiftFilter) ([]domain.Shift, error)
	PurgeShifts(ctx context.Context, branchID string, date string) (int, error)

	GetDayClose(ctx context.Context, branchID string, date string) (*domain.DayClose, error)
	GetDaySales(ctx context.Context, branchID string, date string) (*domain.DaySales, error)
	GetDaySalesByID(ctx context.Context, id string) (*domain.DaySales, error)
	ListDaySales(ctx context.Context, branchID string, from string, to string) ([]domain.DaySales, error)
	CommitDayClose(ctx context.Context, commit DayCloseCommit) (*domain.DaySales, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	GetUserProfile(ctx context.Context, username string) (*domain.UserProfile, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, branchID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
}
