package sales

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"totalhealth/backend/internal/domain"
)

// OrderSource returns candidate orders for a window. Implementations may
// over-fetch; Summarize applies the selection predicate again.
type OrderSource interface {
	ListOrdersTouched(ctx context.Context, branchID string, from time.Time, to time.Time) ([]domain.Order, error)
}

// Warning describes an aggregation that failed and was replaced by a zero
// snapshot.
type Warning struct {
	BranchID string
	From     time.Time
	To       time.Time
	Err      error
}

func (w *Warning) Error() string {
	return fmt.Sprintf("sales aggregation degraded for branch %q [%s, %s]: %v",
		w.BranchID, w.From.Format(time.RFC3339), w.To.Format(time.RFC3339), w.Err)
}

func (w *Warning) Unwrap() error {
	return w.Err
}

// Result is always usable: on failure Snapshot is zeroed and Warning is set.
type Result struct {
	Snapshot domain.SalesSnapshot
	Warning  *Warning
}

func (r Result) Degraded() bool {
	return r.Warning != nil
}

type Aggregator struct {
	source OrderSource
}

func NewAggregator(source OrderSource) *Aggregator {
	return &Aggregator{source: source}
}

// Aggregate never fails. Store errors and panics inside the computation
// degrade to an all-zero snapshot with a Warning attached.
func (a *Aggregator) Aggregate(ctx context.Context, branchID string, from time.Time, to time.Time) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = degraded(branchID, from, to, fmt.Errorf("panic: %v", r))
		}
	}()

	if to.Before(from) {
		return degraded(branchID, from, to, fmt.Errorf("window end before start"))
	}

	orders, err := a.source.ListOrdersTouched(ctx, branchID, from, to)
	if err != nil {
		return degraded(branchID, from, to, err)
	}
	return Result{Snapshot: Summarize(orders, branchID, from, to)}
}

func degraded(branchID string, from time.Time, to time.Time, err error) Result {
	w := &Warning{BranchID: branchID, From: from, To: to, Err: err}
	log.Printf("[sales] WARN: %v", w)
	return Result{Snapshot: Zero(), Warning: w}
}

// Zero returns a snapshot with every amount set to 0.
func Zero() domain.SalesSnapshot {
	return domain.SalesSnapshot{
		TotalSales:    decimal.Zero,
		TotalDiscount: decimal.Zero,
		TotalVat:      decimal.Zero,
		Payments: domain.PaymentTotals{
			Cash:   decimal.Zero,
			Card:   decimal.Zero,
			Online: decimal.Zero,
		},
		SalesByType: domain.SalesByType{
			Restaurant: decimal.Zero,
			Online:     decimal.Zero,
			Membership: decimal.Zero,
		},
		MembershipBreakdown: domain.MembershipBreakdown{
			MembershipMeal:     decimal.Zero,
			MembershipRegister: decimal.Zero,
		},
	}
}

// Qualifies reports whether order counts toward [from, to]. An order is
// counted in every window in which it was created or last updated.
func Qualifies(order domain.Order, branchID string, from time.Time, to time.Time) bool {
	if order.Status != domain.OrderStatusPaid || order.Canceled || order.IsDeleted {
		return false
	}
	if branchID != "" && order.BranchID != branchID {
		return false
	}
	return within(order.CreatedAt, from, to) || within(order.UpdatedAt, from, to)
}

func within(t time.Time, from time.Time, to time.Time) bool {
	if t.IsZero() {
		return false
	}
	return !t.Before(from) && !t.After(to)
}

func Summarize(orders []domain.Order, branchID string, from time.Time, to time.Time) domain.SalesSnapshot {
	snapshot := Zero()
	for _, order := range orders {
		if !Qualifies(order, branchID, from, to) {
			continue
		}
		addOrder(&snapshot, order)
	}
	return snapshot
}

func addOrder(s *domain.SalesSnapshot, order domain.Order) {
	contribution := decimal.Zero
	if len(order.Payments) > 0 {
		for _, payment := range order.Payments {
			contribution = contribution.Add(payment.Amount)
			switch PaymentBucket(payment.Type) {
			case domain.PaymentCash:
				s.Payments.Cash = s.Payments.Cash.Add(payment.Amount)
			case domain.PaymentCard:
				s.Payments.Card = s.Payments.Card.Add(payment.Amount)
			default:
				s.Payments.Online = s.Payments.Online.Add(payment.Amount)
			}
		}
	} else {
		contribution = order.PayableAmount
		if contribution.IsZero() {
			contribution = order.Total
		}
		s.Payments.Cash = s.Payments.Cash.Add(contribution)
	}

	s.TotalOrders++
	s.TotalSales = s.TotalSales.Add(contribution)
	s.TotalDiscount = s.TotalDiscount.Add(order.TotalDiscount)
	s.TotalVat = s.TotalVat.Add(order.Vat)

	switch strings.ToLower(strings.TrimSpace(order.SalesType)) {
	case domain.SalesTypeOnline:
		s.SalesByType.Online = s.SalesByType.Online.Add(contribution)
	case domain.SalesTypeMembership:
		s.SalesByType.Membership = s.SalesByType.Membership.Add(contribution)
		if order.OrderType == domain.OrderTypeNewMembership {
			s.MembershipBreakdown.MembershipRegister = s.MembershipBreakdown.MembershipRegister.Add(contribution)
		} else {
			s.MembershipBreakdown.MembershipMeal = s.MembershipBreakdown.MembershipMeal.Add(contribution)
		}
	default:
		s.SalesByType.Restaurant = s.SalesByType.Restaurant.Add(contribution)
	}
}

// PaymentBucket maps a payment type onto cash, card or online. Unknown types
// land in online.
func PaymentBucket(paymentType string) string {
	switch strings.ToLower(strings.TrimSpace(paymentType)) {
	case domain.PaymentCash:
		return domain.PaymentCash
	case domain.PaymentCard:
		return domain.PaymentCard
	default:
		return domain.PaymentOnline
	}
}
