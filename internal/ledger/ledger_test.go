package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"totalhealth/backend/internal/businessday"
	"totalhealth/backend/internal/domain"
)

var (
	created = time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	later   = created.Add(time.Hour)
	today   = businessday.Date("2024-01-10")
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func paidCashOrder(amount int64) domain.Order {
	order := domain.Order{
		ID:        "order-1",
		BranchID:  "B1",
		Status:    domain.OrderStatusPaid,
		Total:     dec(amount),
		Payments:  []domain.Payment{{Type: "Cash", Amount: dec(amount)}},
		CreatedAt: created,
		UpdatedAt: created,
	}
	order.PaymentHistory = Start(order, created)
	return order
}

func TestStartRecordsCreation(t *testing.T) {
	order := paidCashOrder(100)

	require.Len(t, order.PaymentHistory.Entries, 1)
	entry := order.PaymentHistory.Entries[0]
	require.Equal(t, domain.LedgerActionCreated, entry.Action)
	require.True(t, entry.CumulativePaid.Equal(dec(100)))
	require.True(t, entry.Remaining.IsZero())
	require.True(t, order.PaymentHistory.TotalPaid.Equal(dec(100)))
	require.Empty(t, order.PaymentHistory.ChangeSequence)
}

func TestPaidAmountPrefersCumulative(t *testing.T) {
	order := domain.Order{Payments: []domain.Payment{{Type: "cash", Amount: dec(30)}, {Type: "card", Amount: dec(20)}}}
	require.True(t, PaidAmount(order).Equal(dec(50)))

	cumulative := dec(70)
	order.CumulativePaid = &cumulative
	require.True(t, PaidAmount(order).Equal(dec(70)))

	require.True(t, PaidAmount(domain.Order{}).IsZero())
}

func TestClassify(t *testing.T) {
	base := domain.Order{Total: dec(100), Payments: []domain.Payment{{Type: "cash", Amount: dec(50)}}}

	more := base
	more.Total = dec(120)
	require.Equal(t, domain.LedgerActionAddItem, Classify(base, more))

	less := base
	less.Total = dec(80)
	require.Equal(t, domain.LedgerActionRemoveItem, Classify(base, less))

	paidMore := base
	paidMore.Payments = []domain.Payment{{Type: "cash", Amount: dec(100)}}
	require.Equal(t, domain.LedgerActionPaymentReceived, Classify(base, paidMore))

	paidLess := base
	paidLess.Payments = []domain.Payment{{Type: "cash", Amount: dec(20)}}
	require.Equal(t, domain.LedgerActionPaymentAdjusted, Classify(base, paidLess))

	switched := base
	switched.Payments = []domain.Payment{{Type: "card", Amount: dec(50)}}
	require.Equal(t, domain.LedgerActionPaymentModeChange, Classify(base, switched))

	require.Equal(t, domain.LedgerActionEdited, Classify(base, base))
}

func TestAppendHistoryIsAppendOnly(t *testing.T) {
	prev := domain.Order{Total: dec(100)}
	prev.PaymentHistory = Start(prev, created)
	original := prev.PaymentHistory.Entries[0]

	next := prev
	next.Payments = []domain.Payment{{Type: "cash", Amount: dec(60)}}
	next.PaymentHistory = domain.PaymentHistory{}

	history := AppendHistory(prev, next, later, "partial payment")

	require.Len(t, history.Entries, 2)
	require.Equal(t, original, history.Entries[0])
	entry := history.Entries[1]
	require.Equal(t, domain.LedgerActionPaymentReceived, entry.Action)
	require.True(t, entry.Paid.Equal(dec(60)))
	require.True(t, entry.CumulativePaid.Equal(dec(60)))
	require.True(t, entry.Remaining.Equal(dec(40)))
	require.True(t, history.TotalPaid.Equal(dec(60)))

	next.Payments[0].Amount = dec(1)
	require.True(t, history.Entries[1].Payments[0].Amount.Equal(dec(60)))
	require.Len(t, prev.PaymentHistory.Entries, 1)
}

func TestAppendHistoryRecordsNegativeIncrement(t *testing.T) {
	prev := domain.Order{Total: dec(100), Payments: []domain.Payment{{Type: "cash", Amount: dec(100)}}}
	next := prev
	next.Payments = []domain.Payment{{Type: "cash", Amount: dec(70)}}

	history := AppendHistory(prev, next, later, "refund")
	entry := history.Entries[len(history.Entries)-1]
	require.Equal(t, domain.LedgerActionPaymentAdjusted, entry.Action)
	require.True(t, entry.Paid.Equal(dec(-30)))
	require.True(t, entry.Remaining.Equal(dec(30)))
}

func TestChangePaymentModeCashToCard(t *testing.T) {
	order := paidCashOrder(100)

	changed, err := ChangePaymentMode(order, "Card", today, today, later)
	require.NoError(t, err)

	require.Equal(t, []domain.Payment{{Type: "Card", Amount: dec(100)}}, changed.Payments)
	require.True(t, changed.PaymentHistory.TotalPaid.Equal(dec(100)))
	require.Len(t, changed.PaymentHistory.ChangeSequence, 1)
	require.Equal(t, []string{"Cash"}, changed.PaymentHistory.ChangeSequence[0].From)
	require.Equal(t, []string{"Card"}, changed.PaymentHistory.ChangeSequence[0].To)

	require.Len(t, changed.PaymentHistory.Entries, 2)
	last := changed.PaymentHistory.Entries[1]
	require.Equal(t, domain.LedgerActionPaymentModeChange, last.Action)
	require.True(t, last.Paid.IsZero())
	require.Equal(t, later, changed.UpdatedAt)

	require.Equal(t, "Cash", order.Payments[0].Type)
}

func TestChangePaymentModeKeepsMethodTypeAndCollapsesModes(t *testing.T) {
	order := domain.Order{
		Status: domain.OrderStatusPaid,
		Total:  dec(90),
		Payments: []domain.Payment{
			{Type: "card", Amount: dec(40), MethodType: "visa"},
			{Type: "cash", Amount: dec(50)},
		},
	}

	changed, err := ChangePaymentMode(order, "online", today, today, later)
	require.NoError(t, err)
	require.Equal(t, "visa", changed.Payments[0].MethodType)
	require.Equal(t, []string{"card", "cash"}, changed.PaymentHistory.ChangeSequence[0].From)
	require.True(t, PaidAmount(changed).Equal(dec(90)))
}

func TestChangePaymentModeSuppressesRedundantChange(t *testing.T) {
	order := paidCashOrder(100)

	same, err := ChangePaymentMode(order, "Cash", today, today, later)
	require.NoError(t, err)
	require.Len(t, same.PaymentHistory.Entries, 1)
	require.Empty(t, same.PaymentHistory.ChangeSequence)
}

func TestChangePaymentModeRejections(t *testing.T) {
	order := paidCashOrder(100)

	_, err := ChangePaymentMode(order, " ", today, today, later)
	require.ErrorIs(t, err, ErrInvalidMode)

	_, err = ChangePaymentMode(order, "Card", today, businessday.Date("2024-01-09"), later)
	require.ErrorIs(t, err, ErrNotToday)

	unpaid := order
	unpaid.Status = domain.OrderStatusPartial
	_, err = ChangePaymentMode(unpaid, "Card", today, today, later)
	require.ErrorIs(t, err, ErrOrderNotPaid)

	empty := order
	empty.Payments = nil
	_, err = ChangePaymentMode(empty, "Card", today, today, later)
	require.ErrorIs(t, err, ErrNoPayments)
}

func TestChangePaymentModeRecordsEachTransitionOnce(t *testing.T) {
	order := paidCashOrder(100)

	toCard, err := ChangePaymentMode(order, "Card", today, today, later)
	require.NoError(t, err)
	backToCash, err := ChangePaymentMode(toCard, "Cash", today, today, later.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, backToCash.PaymentHistory.ChangeSequence, 2)

	again, err := ChangePaymentMode(backToCash, "Card", today, today, later.Add(2*time.Minute))
	require.NoError(t, err)
	require.Equal(t, "Card", again.Payments[0].Type)
	require.Len(t, again.PaymentHistory.ChangeSequence, 2)
	require.Len(t, again.PaymentHistory.Entries, len(backToCash.PaymentHistory.Entries)+1)
}

func TestModeSet(t *testing.T) {
	modes := ModeSet([]domain.Payment{{Type: "card"}, {Type: "cash"}, {Type: "card"}, {Type: ""}})
	require.Equal(t, []string{"card", "cash"}, modes)
}
