package ledger

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"totalhealth/backend/internal/businessday"
	"totalhealth/backend/internal/domain"
)

var (
	ErrInvalidMode  = errors.New("payment mode is required")
	ErrOrderNotPaid = errors.New("payment mode can only be changed on paid orders")
	ErrNotToday     = errors.New("payment mode can only be changed on orders dated today")
	ErrNoPayments   = errors.New("order has no payments to change")
)

// PaidAmount is the cumulative paid figure of an order: the tracked
// cumulative value when present, else the sum of its payments.
func PaidAmount(order domain.Order) decimal.Decimal {
	if order.CumulativePaid != nil {
		return *order.CumulativePaid
	}
	paid := decimal.Zero
	for _, payment := range order.Payments {
		paid = paid.Add(payment.Amount)
	}
	return paid
}

// Start seeds the history of a newly created order with a single entry.
func Start(order domain.Order, at time.Time) domain.PaymentHistory {
	paid := PaidAmount(order)
	return domain.PaymentHistory{
		TotalPaid: paid,
		Entries: []domain.PaymentHistoryEntry{
			newEntry(order, domain.LedgerActionCreated, paid, paid, at, "order created"),
		},
		ChangeSequence: []domain.PaymentModeChange{},
	}
}

// AppendHistory records the transition prev -> next. The result always
// extends prev's history; entries already present are carried over as-is,
// whatever next.PaymentHistory holds.
func AppendHistory(prev domain.Order, next domain.Order, at time.Time, description string) domain.PaymentHistory {
	prevPaid := PaidAmount(prev)
	newPaid := PaidAmount(next)
	action := Classify(prev, next)

	history := cloneHistory(prev.PaymentHistory)
	history.TotalPaid = newPaid
	history.Entries = append(history.Entries, newEntry(next, action, newPaid.Sub(prevPaid), newPaid, at, description))
	return history
}

// Classify names the transition between two states of the same order.
func Classify(prev domain.Order, next domain.Order) string {
	switch next.Total.Cmp(prev.Total) {
	case 1:
		return domain.LedgerActionAddItem
	case -1:
		return domain.LedgerActionRemoveItem
	}

	switch PaidAmount(next).Cmp(PaidAmount(prev)) {
	case 1:
		return domain.LedgerActionPaymentReceived
	case -1:
		return domain.LedgerActionPaymentAdjusted
	}

	if !samePayments(prev.Payments, next.Payments) {
		return domain.LedgerActionPaymentModeChange
	}
	return domain.LedgerActionEdited
}

// ChangePaymentMode moves every payment of a paid order dated today onto a
// single mode, keeping amounts and method types. orderDate is the business
// date the order was created on.
func ChangePaymentMode(order domain.Order, mode string, today businessday.Date, orderDate businessday.Date, at time.Time) (domain.Order, error) {
	mode = strings.TrimSpace(mode)
	if mode == "" {
		return domain.Order{}, ErrInvalidMode
	}
	if order.Status != domain.OrderStatusPaid {
		return domain.Order{}, ErrOrderNotPaid
	}
	if orderDate != today {
		return domain.Order{}, ErrNotToday
	}
	if len(order.Payments) == 0 {
		return domain.Order{}, ErrNoPayments
	}

	from := ModeSet(order.Payments)
	to := []string{mode}
	if slices.Equal(from, to) {
		return order, nil
	}

	next := order
	next.Payments = make([]domain.Payment, 0, len(order.Payments))
	for _, payment := range order.Payments {
		next.Payments = append(next.Payments, domain.Payment{
			Type:       mode,
			Amount:     payment.Amount,
			MethodType: payment.MethodType,
		})
	}

	history := AppendHistory(order, next, at, fmt.Sprintf("payment mode changed from %s to %s", strings.Join(from, ","), mode))
	if !alreadyRecorded(history.ChangeSequence, from, to) {
		history.ChangeSequence = append(history.ChangeSequence, domain.PaymentModeChange{
			Timestamp: at,
			From:      from,
			To:        to,
		})
	}
	next.PaymentHistory = history
	next.UpdatedAt = at
	return next, nil
}

// ModeSet returns the distinct payment types in sorted order.
func ModeSet(payments []domain.Payment) []string {
	modes := make([]string, 0, len(payments))
	for _, payment := range payments {
		mode := strings.TrimSpace(payment.Type)
		if mode == "" || slices.Contains(modes, mode) {
			continue
		}
		modes = append(modes, mode)
	}
	slices.Sort(modes)
	return modes
}

// alreadyRecorded reports whether any earlier change moved the same mode
// set to the same target.
func alreadyRecorded(sequence []domain.PaymentModeChange, from []string, to []string) bool {
	return slices.ContainsFunc(sequence, func(change domain.PaymentModeChange) bool {
		return slices.Equal(change.From, from) && slices.Equal(change.To, to)
	})
}

func newEntry(order domain.Order, action string, paid decimal.Decimal, cumulative decimal.Decimal, at time.Time, description string) domain.PaymentHistoryEntry {
	return domain.PaymentHistoryEntry{
		Timestamp:      at,
		Action:         action,
		Total:          order.Total,
		Paid:           paid,
		CumulativePaid: cumulative,
		Remaining:      order.Total.Sub(cumulative),
		Payments:       slices.Clone(order.Payments),
		Description:    description,
	}
}

func samePayments(a []domain.Payment, b []domain.Payment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type || !a[i].Amount.Equal(b[i].Amount) || a[i].MethodType != b[i].MethodType {
			return false
		}
	}
	return true
}

func cloneHistory(h domain.PaymentHistory) domain.PaymentHistory {
	out := domain.PaymentHistory{
		TotalPaid:      h.TotalPaid,
		Entries:        make([]domain.PaymentHistoryEntry, 0, len(h.Entries)+1),
		ChangeSequence: make([]domain.PaymentModeChange, 0, len(h.ChangeSequence)+1),
	}
	for _, entry := range h.Entries {
		entry.Payments = slices.Clone(entry.Payments)
		out.Entries = append(out.Entries, entry)
	}
	for _, change := range h.ChangeSequence {
		change.From = slices.Clone(change.From)
		change.To = slices.Clone(change.To)
		out.ChangeSequence = append(out.ChangeSequence, change)
	}
	return out
}
