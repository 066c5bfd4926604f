package sales

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"totalhealth/backend/internal/domain"
)

type sliceSource []domain.Order

func (s sliceSource) ListOrdersTouched(_ context.Context, _ string, _ time.Time, _ time.Time) ([]domain.Order, error) {
	return s, nil
}

type failingSource struct{ err error }

func (f failingSource) ListOrdersTouched(_ context.Context, _ string, _ time.Time, _ time.Time) ([]domain.Order, error) {
	return nil, f.err
}

type panickingSource struct{}

func (panickingSource) ListOrdersTouched(_ context.Context, _ string, _ time.Time, _ time.Time) ([]domain.Order, error) {
	panic("boom")
}

var (
	windowStart = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func paidOrder(id string, at time.Time, payments ...domain.Payment) domain.Order {
	return domain.Order{
		ID:        id,
		BranchID:  "B1",
		Status:    domain.OrderStatusPaid,
		SalesType: domain.SalesTypeRestaurant,
		Payments:  payments,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func requireConserved(t *testing.T, s domain.SalesSnapshot) {
	t.Helper()
	sum := s.Payments.Cash.Add(s.Payments.Card).Add(s.Payments.Online)
	require.True(t, s.TotalSales.Equal(sum), "totalSales %s != payments %s", s.TotalSales, sum)
	byType := s.SalesByType.Restaurant.Add(s.SalesByType.Online).Add(s.SalesByType.Membership)
	require.True(t, byType.LessThanOrEqual(s.TotalSales))
}

func TestSummarizeBucketsPayments(t *testing.T) {
	orders := []domain.Order{
		paidOrder("o1", windowStart.Add(time.Hour), domain.Payment{Type: "Cash", Amount: dec(40)}),
		paidOrder("o2", windowStart.Add(2*time.Hour), domain.Payment{Type: "Card", Amount: dec(60)}),
		paidOrder("o3", windowStart.Add(2*time.Hour),
			domain.Payment{Type: "Tabby", Amount: dec(15)},
			domain.Payment{Type: "cash", Amount: dec(5)},
		),
	}

	s := Summarize(orders, "B1", windowStart, windowEnd)

	require.Equal(t, 3, s.TotalOrders)
	require.True(t, s.TotalSales.Equal(dec(120)))
	require.True(t, s.Payments.Cash.Equal(dec(45)))
	require.True(t, s.Payments.Card.Equal(dec(60)))
	require.True(t, s.Payments.Online.Equal(dec(15)))
	require.True(t, s.SalesByType.Restaurant.Equal(dec(120)))
	requireConserved(t, s)
}

func TestSummarizeUsesPaymentsOverNominalTotal(t *testing.T) {
	order := paidOrder("o1", windowStart, domain.Payment{Type: "cash", Amount: dec(80)})
	order.Total = dec(100)
	order.PayableAmount = dec(95)

	s := Summarize([]domain.Order{order}, "B1", windowStart, windowEnd)
	require.True(t, s.TotalSales.Equal(dec(80)))
}

func TestSummarizeFallsBackToPayableThenTotalAsCash(t *testing.T) {
	payable := paidOrder("o1", windowStart)
	payable.Total = dec(100)
	payable.PayableAmount = dec(90)

	totalOnly := paidOrder("o2", windowStart)
	totalOnly.Total = dec(30)

	s := Summarize([]domain.Order{payable, totalOnly}, "B1", windowStart, windowEnd)
	require.True(t, s.TotalSales.Equal(dec(120)))
	require.True(t, s.Payments.Cash.Equal(dec(120)))
	requireConserved(t, s)
}

func TestSummarizeSelectionPredicate(t *testing.T) {
	inWindow := windowStart.Add(30 * time.Minute)
	before := windowStart.Add(-24 * time.Hour)

	editedLater := paidOrder("edited", before, domain.Payment{Type: "cash", Amount: dec(10)})
	editedLater.UpdatedAt = inWindow

	unpaid := paidOrder("unpaid", inWindow, domain.Payment{Type: "cash", Amount: dec(1)})
	unpaid.Status = domain.OrderStatusUnpaid

	canceled := paidOrder("canceled", inWindow, domain.Payment{Type: "cash", Amount: dec(1)})
	canceled.Canceled = true

	deleted := paidOrder("deleted", inWindow, domain.Payment{Type: "cash", Amount: dec(1)})
	deleted.IsDeleted = true

	otherBranch := paidOrder("other", inWindow, domain.Payment{Type: "cash", Amount: dec(1)})
	otherBranch.BranchID = "B2"

	outside := paidOrder("outside", before, domain.Payment{Type: "cash", Amount: dec(1)})

	onEdge := paidOrder("edge", windowEnd, domain.Payment{Type: "cash", Amount: dec(5)})

	orders := []domain.Order{editedLater, unpaid, canceled, deleted, otherBranch, outside, onEdge}
	s := Summarize(orders, "B1", windowStart, windowEnd)

	require.Equal(t, 2, s.TotalOrders)
	require.True(t, s.TotalSales.Equal(dec(15)))

	all := Summarize(orders, "", windowStart, windowEnd)
	require.Equal(t, 3, all.TotalOrders)
}

func TestSummarizeSalesTypes(t *testing.T) {
	online := paidOrder("online", windowStart, domain.Payment{Type: "online", Amount: dec(20)})
	online.SalesType = domain.SalesTypeOnline

	meal := paidOrder("meal", windowStart, domain.Payment{Type: "card", Amount: dec(30)})
	meal.SalesType = domain.SalesTypeMembership
	meal.OrderType = domain.OrderTypeMembershipMeal

	register := paidOrder("register", windowStart, domain.Payment{Type: "card", Amount: dec(200)})
	register.SalesType = domain.SalesTypeMembership
	register.OrderType = domain.OrderTypeNewMembership

	otherMembership := paidOrder("renewal", windowStart, domain.Payment{Type: "card", Amount: dec(7)})
	otherMembership.SalesType = domain.SalesTypeMembership
	otherMembership.OrderType = "Renewal"

	unknown := paidOrder("unknown", windowStart, domain.Payment{Type: "cash", Amount: dec(3)})
	unknown.SalesType = "catering"

	s := Summarize([]domain.Order{online, meal, register, otherMembership, unknown}, "B1", windowStart, windowEnd)

	require.True(t, s.SalesByType.Online.Equal(dec(20)))
	require.True(t, s.SalesByType.Membership.Equal(dec(237)))
	require.True(t, s.SalesByType.Restaurant.Equal(dec(3)))
	require.True(t, s.MembershipBreakdown.MembershipMeal.Equal(dec(37)))
	require.True(t, s.MembershipBreakdown.MembershipRegister.Equal(dec(200)))
	requireConserved(t, s)
}

func TestSummarizeSumsDiscountAndVat(t *testing.T) {
	a := paidOrder("a", windowStart, domain.Payment{Type: "cash", Amount: dec(50)})
	a.TotalDiscount = dec(5)
	a.Vat = decimal.RequireFromString("2.38")
	b := paidOrder("b", windowStart)
	b.Total = dec(10)
	b.TotalDiscount = dec(1)
	b.Vat = decimal.RequireFromString("0.48")

	s := Summarize([]domain.Order{a, b}, "B1", windowStart, windowEnd)
	require.True(t, s.TotalDiscount.Equal(dec(6)))
	require.True(t, s.TotalVat.Equal(decimal.RequireFromString("2.86")))
}

func TestAggregateDegradesOnSourceError(t *testing.T) {
	agg := NewAggregator(failingSource{err: errors.New("db down")})

	res := agg.Aggregate(context.Background(), "B1", windowStart, windowEnd)
	require.True(t, res.Degraded())
	require.True(t, res.Snapshot.TotalSales.IsZero())
	require.Equal(t, 0, res.Snapshot.TotalOrders)
	require.ErrorContains(t, res.Warning, "db down")
}

func TestAggregateDegradesOnPanic(t *testing.T) {
	agg := NewAggregator(panickingSource{})

	res := agg.Aggregate(context.Background(), "B1", windowStart, windowEnd)
	require.True(t, res.Degraded())
	require.True(t, res.Snapshot.TotalSales.IsZero())
}

func TestAggregateRejectsInvertedWindow(t *testing.T) {
	agg := NewAggregator(sliceSource{})

	res := agg.Aggregate(context.Background(), "B1", windowEnd, windowStart)
	require.True(t, res.Degraded())
}

func TestAggregateHappyPath(t *testing.T) {
	agg := NewAggregator(sliceSource{
		paidOrder("o1", windowStart.Add(time.Hour), domain.Payment{Type: "cash", Amount: dec(40)}),
	})

	res := agg.Aggregate(context.Background(), "B1", windowStart, windowEnd)
	require.False(t, res.Degraded())
	require.True(t, res.Snapshot.Payments.Cash.Equal(dec(40)))
}
