package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"totalhealth/backend/internal/domain"
	"totalhealth/backend/internal/store"
)

func openShift(branchID string, date string, number int) domain.Shift {
	return domain.Shift{
		BranchID:    branchID,
		StartDate:   date,
		ShiftNumber: number,
		StartTime:   time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		Status:      domain.ShiftStatusOpen,
		CreatedBy:   "cashier",
	}
}

func TestCreateShiftRejectsSecondOpenShift(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.CreateShift(ctx, openShift("B1", "2024-01-10", 1)); err != nil {
		t.Fatalf("create first shift: %v", err)
	}
	_, err := s.CreateShift(ctx, openShift("B1", "2024-01-10", 2))
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := s.CreateShift(ctx, openShift("B2", "2024-01-10", 1)); err != nil {
		t.Fatalf("other branch should open independently: %v", err)
	}
}

func TestCreateShiftRejectsDuplicateNumber(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.CreateShift(ctx, openShift("B1", "2024-01-10", 1))
	if err != nil {
		t.Fatalf("create shift: %v", err)
	}
	first.Status = domain.ShiftStatusClosed
	if _, err := s.CloseOpenShift(ctx, *first); err != nil {
		t.Fatalf("close shift: %v", err)
	}
	_, err = s.CreateShift(ctx, openShift("B1", "2024-01-10", 1))
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate shift number, got %v", err)
	}
	maxNumber, err := s.MaxShiftNumber(ctx, "B1", "2024-01-10")
	if err != nil || maxNumber != 1 {
		t.Fatalf("expected max shift number 1, got %d (%v)", maxNumber, err)
	}
}

func TestCloseOpenShiftRequiresOpenState(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateShift(ctx, openShift("B1", "2024-01-10", 1))
	if err != nil {
		t.Fatalf("create shift: %v", err)
	}
	created.Status = domain.ShiftStatusClosed
	if _, err := s.CloseOpenShift(ctx, *created); err != nil {
		t.Fatalf("close shift: %v", err)
	}
	if _, err := s.CloseOpenShift(ctx, *created); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second close, got %v", err)
	}
	if _, err := s.GetOpenShift(ctx, "B1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no open shift, got %v", err)
	}
}

func TestCommitDayCloseIsAllOrNothing(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateShift(ctx, openShift("B1", "2024-01-10", 1))
	if err != nil {
		t.Fatalf("create shift: %v", err)
	}
	transitioned := *created
	transitioned.Status = domain.ShiftStatusDayClose

	_, err = s.CommitDayClose(ctx, store.DayCloseCommit{
		BranchID: "B1",
		Date:     "2024-01-10",
		Shifts:   []domain.Shift{transitioned, {ID: "shift-missing"}},
		DaySales: domain.DaySales{Date: "2024-01-10", BranchID: "B1"},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	open, err := s.GetOpenShift(ctx, "B1")
	if err != nil || open.ID != created.ID {
		t.Fatalf("rejected commit must leave the open shift untouched: %v", err)
	}

	report, err := s.CommitDayClose(ctx, store.DayCloseCommit{
		BranchID: "B1",
		Date:     "2024-01-10",
		Shifts:   []domain.Shift{transitioned},
		DaySales: domain.DaySales{Date: "2024-01-10", BranchID: "B1", TotalShifts: 1},
	})
	if err != nil {
		t.Fatalf("commit day close: %v", err)
	}
	if report.ID == "" {
		t.Fatalf("expected generated day sales id")
	}
	stored, err := s.GetShiftByID(ctx, created.ID)
	if err != nil || stored.Status != domain.ShiftStatusDayClose {
		t.Fatalf("expected day-close shift, got %+v (%v)", stored, err)
	}

	_, err = s.CommitDayClose(ctx, store.DayCloseCommit{
		BranchID: "B1",
		Date:     "2024-01-10",
		DaySales: domain.DaySales{Date: "2024-01-10", BranchID: "B1"},
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict on second commit, got %v", err)
	}
}

func TestCommitDayCloseWithoutShiftsStoresDayClose(t *testing.T) {
	s := New()
	ctx := context.Background()

	report, err := s.CommitDayClose(ctx, store.DayCloseCommit{
		BranchID: "B1",
		Date:     "2024-01-10",
		DayClose: &domain.DayClose{BranchID: "B1", StartDate: "2024-01-10", Status: domain.ShiftStatusDayClose},
		DaySales: domain.DaySales{Date: "2024-01-10", BranchID: "B1"},
	})
	if err != nil {
		t.Fatalf("commit day close: %v", err)
	}
	dayClose, err := s.GetDayClose(ctx, "B1", "2024-01-10")
	if err != nil {
		t.Fatalf("get day close: %v", err)
	}
	if report.DayCloseID != dayClose.ID {
		t.Fatalf("expected day sales to reference %s, got %s", dayClose.ID, report.DayCloseID)
	}
}

func TestListOrdersTouchedMatchesEitherTimestamp(t *testing.T) {
	s := New()
	ctx := context.Background()
	from := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(24*time.Hour - time.Nanosecond)

	for _, order := range []domain.Order{
		{ID: "created", BranchID: "B1", CreatedAt: from.Add(time.Hour)},
		{ID: "updated", BranchID: "B1", CreatedAt: from.Add(-48 * time.Hour), UpdatedAt: from.Add(2 * time.Hour)},
		{ID: "old", BranchID: "B1", CreatedAt: from.Add(-48 * time.Hour), UpdatedAt: from.Add(-47 * time.Hour)},
		{ID: "other", BranchID: "B2", CreatedAt: from.Add(time.Hour)},
	} {
		if _, err := s.CreateOrder(ctx, order); err != nil {
			t.Fatalf("create order %s: %v", order.ID, err)
		}
	}

	orders, err := s.ListOrdersTouched(ctx, "B1", from, to)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != "updated" || orders[1].ID != "created" {
		t.Fatalf("unexpected orders: %+v", orders)
	}
}

func TestListUnpaidOrdersIncludesPartialAndSkipsCanceled(t *testing.T) {
	s := New()
	ctx := context.Background()
	day := time.Date(2024, 1, 11, 10, 0, 0, 0, time.UTC)

	for _, order := range []domain.Order{
		{ID: "due", BranchID: "B1", Status: domain.OrderStatusUnpaid, Total: decimal.NewFromInt(20), CreatedAt: day},
		{ID: "canceled", BranchID: "B1", Status: domain.OrderStatusUnpaid, Canceled: true, CreatedAt: day},
		{ID: "deleted", BranchID: "B1", Status: domain.OrderStatusUnpaid, IsDeleted: true, CreatedAt: day},
		{ID: "paid", BranchID: "B1", Status: domain.OrderStatusPaid, CreatedAt: day},
		{ID: "partial", BranchID: "B1", Status: domain.OrderStatusPartial, Total: decimal.NewFromInt(30), CreatedAt: day.Add(time.Minute)},
	} {
		if _, err := s.CreateOrder(ctx, order); err != nil {
			t.Fatalf("create order %s: %v", order.ID, err)
		}
	}

	orders, err := s.ListUnpaidOrders(ctx, "B1", day.Add(-time.Hour), day.Add(time.Hour))
	if err != nil {
		t.Fatalf("list unpaid: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != "due" || orders[1].ID != "partial" {
		t.Fatalf("expected the due and partial orders, got %+v", orders)
	}
}

func TestUpdateOrderDoesNotAliasCaller(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateOrder(ctx, domain.Order{
		BranchID: "B1",
		Payments: []domain.Payment{{Type: "cash", Amount: decimal.NewFromInt(10)}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	created.Payments[0].Type = "card"

	stored, err := s.GetOrder(ctx, created.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if stored.Payments[0].Type != "cash" {
		t.Fatalf("stored order mutated through returned copy")
	}
}
