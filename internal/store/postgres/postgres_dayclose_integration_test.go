package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"totalhealth/backend/internal/domain"
	"totalhealth/backend/internal/store"
)

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("TOTALHEALTH_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set TOTALHEALTH_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestOpenShiftUniquePerBranch(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	branchID := fmt.Sprintf("branch-it-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM shifts WHERE branch_id = $1`, branchID)
	})

	first := domain.Shift{
		BranchID:    branchID,
		ShiftNumber: 1,
		StartDate:   "2024-01-10",
		StartTime:   time.Date(2024, 1, 10, 5, 0, 0, 0, time.UTC),
		Status:      domain.ShiftStatusOpen,
		CreatedBy:   "cashier",
	}
	if _, err := s.CreateShift(ctx, first); err != nil {
		t.Fatalf("create shift: %v", err)
	}
	second := first
	second.ShiftNumber = 2
	if _, err := s.CreateShift(ctx, second); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict for second open shift, got %v", err)
	}

	open, err := s.GetOpenShift(ctx, branchID)
	if err != nil {
		t.Fatalf("get open shift: %v", err)
	}
	sales := domain.SalesSnapshot{TotalOrders: 1, TotalSales: decimal.NewFromInt(40)}
	logout := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	open.Status = domain.ShiftStatusClosed
	open.LogoutTime = &logout
	open.EndTime = &logout
	open.Sales = &sales
	closed, err := s.CloseOpenShift(ctx, *open)
	if err != nil {
		t.Fatalf("close shift: %v", err)
	}
	if closed.Sales == nil || !closed.Sales.TotalSales.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected persisted sales snapshot, got %+v", closed.Sales)
	}
	if _, err := s.CloseOpenShift(ctx, *open); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second close, got %v", err)
	}
}

func TestCommitDayCloseRejectsSecondClose(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	branchID := fmt.Sprintf("branch-it-%d", time.Now().UnixNano())
	date := "2024-01-10"
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM day_sales WHERE branch_id = $1`, branchID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM day_closes WHERE branch_id = $1`, branchID)
	})

	start := time.Date(2024, 1, 9, 20, 0, 0, 0, time.UTC)
	commit := store.DayCloseCommit{
		BranchID: branchID,
		Date:     date,
		DayClose: &domain.DayClose{
			BranchID:  branchID,
			StartDate: date,
			StartTime: start,
			EndDate:   date,
			EndTime:   start.Add(24*time.Hour - time.Nanosecond),
			Status:    domain.ShiftStatusDayClose,
			CreatedBy: "manager",
			ClosedBy:  "manager",
		},
		DaySales: domain.DaySales{
			Date:         date,
			BranchID:     branchID,
			DaySales:     domain.SalesSnapshot{TotalOrders: 2, TotalSales: decimal.NewFromInt(150)},
			DayCloseTime: start.Add(20 * time.Hour),
			ClosedBy:     "manager",
		},
	}
	report, err := s.CommitDayClose(ctx, commit)
	if err != nil {
		t.Fatalf("commit day close: %v", err)
	}
	if report.DayCloseID == "" {
		t.Fatalf("expected day close id on report")
	}

	stored, err := s.GetDaySales(ctx, branchID, date)
	if err != nil {
		t.Fatalf("get day sales: %v", err)
	}
	if !stored.DaySales.TotalSales.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected totalSales=150, got %s", stored.DaySales.TotalSales)
	}

	if _, err := s.CommitDayClose(ctx, commit); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict on second day close, got %v", err)
	}
}
