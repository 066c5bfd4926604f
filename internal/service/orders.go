package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"totalhealth/backend/internal/domain"
	"totalhealth/backend/internal/ledger"
	"totalhealth/backend/internal/xid"
)

func (s *Service) CreateOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.OrderResponse, error) {
	branchID := s.branchOrDefault(req.BranchID)
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = domain.OrderStatusUnpaid
	}
	if err := validateOrderStatus(status); err != nil {
		return domain.OrderResponse{}, err
	}
	if err := validateAmounts(req.Total, req.TotalDiscount, req.Vat); err != nil {
		return domain.OrderResponse{}, err
	}
	payable := decimal.Zero
	if req.PayableAmount != nil {
		if req.PayableAmount.IsNegative() {
			return domain.OrderResponse{}, invalid("payableAmount must not be negative")
		}
		payable = *req.PayableAmount
	}
	payments, err := normalizePayments(req.Payments)
	if err != nil {
		return domain.OrderResponse{}, err
	}

	now := s.clock.Now().UTC()
	orderNumber := strings.TrimSpace(req.OrderNumber)
	id := xid.New("order")
	if orderNumber == "" {
		orderNumber = id
	}
	order := domain.Order{
		ID:            id,
		OrderNumber:   orderNumber,
		BranchID:      branchID,
		Status:        status,
		SalesType:     strings.TrimSpace(req.SalesType),
		OrderType:     strings.TrimSpace(req.OrderType),
		Total:         req.Total,
		PayableAmount: payable,
		TotalDiscount: req.TotalDiscount,
		Vat:           req.Vat,
		Payments:      payments,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if order.SalesType == "" {
		order.SalesType = domain.SalesTypeRestaurant
	}
	order.PaymentHistory = ledger.Start(order, now)

	saved, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return domain.OrderResponse{}, err
	}
	s.metrics.LedgerEntry(domain.LedgerActionCreated)
	return domain.OrderResponse{Order: *saved}, nil
}

// UpdateOrder applies the payment-relevant fields of req and appends one
// ledger entry describing the change.
func (s *Service) UpdateOrder(ctx context.Context, id string, req domain.OrderUpdateRequest) (domain.OrderResponse, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.OrderResponse{}, invalid("order id is required")
	}

	unlock := s.lockOrder(id)
	defer unlock()

	prev, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return domain.OrderResponse{}, err
	}

	next := *prev
	if req.Status != nil {
		status := strings.TrimSpace(*req.Status)
		if err := validateOrderStatus(status); err != nil {
			return domain.OrderResponse{}, err
		}
		next.Status = status
	}
	if req.Canceled != nil {
		next.Canceled = *req.Canceled
	}
	for _, field := range []struct {
		name   string
		value  *decimal.Decimal
		target *decimal.Decimal
	}{
		{"total", req.Total, &next.Total},
		{"payableAmount", req.PayableAmount, &next.PayableAmount},
		{"totalDiscount", req.TotalDiscount, &next.TotalDiscount},
		{"vat", req.Vat, &next.Vat},
	} {
		if field.value == nil {
			continue
		}
		if field.value.IsNegative() {
			return domain.OrderResponse{}, invalid("%s must not be negative", field.name)
		}
		*field.target = *field.value
	}
	if req.Payments != nil {
		payments, err := normalizePayments(req.Payments)
		if err != nil {
			return domain.OrderResponse{}, err
		}
		next.Payments = payments
		next.CumulativePaid = nil
	}

	now := s.clock.Now().UTC()
	next.UpdatedAt = now
	next.PaymentHistory = ledger.AppendHistory(*prev, next, now, strings.TrimSpace(req.Description))

	saved, err := s.repo.UpdateOrder(ctx, next)
	if err != nil {
		return domain.OrderResponse{}, err
	}
	entries := saved.PaymentHistory.Entries
	if len(entries) > 0 {
		s.metrics.LedgerEntry(entries[len(entries)-1].Action)
	}
	return domain.OrderResponse{Order: *saved}, nil
}

// ChangePaymentMode moves all payments of a paid order created today onto
// one mode. Orders of a day that is already closed cannot change.
func (s *Service) ChangePaymentMode(ctx context.Context, id string, req domain.PaymentModeChangeRequest) (domain.OrderResponse, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.OrderResponse{}, invalid("order id is required")
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	switch mode {
	case domain.PaymentCash, domain.PaymentCard, domain.PaymentOnline:
	case "":
		return domain.OrderResponse{}, invalid("%v", ledger.ErrInvalidMode)
	default:
		return domain.OrderResponse{}, invalid("unknown payment mode %q", req.Mode)
	}

	unlock := s.lockOrder(id)
	defer unlock()

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return domain.OrderResponse{}, err
	}

	today := s.clock.Today()
	closed, err := s.dayClosed(ctx, order.BranchID, today)
	if err != nil {
		return domain.OrderResponse{}, err
	}
	if closed {
		return domain.OrderResponse{}, conflict("business day %s is already closed for branch %s", today, order.BranchID)
	}

	now := s.clock.Now().UTC()
	next, err := ledger.ChangePaymentMode(*order, mode, today, s.clock.DateOf(order.CreatedAt), now)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidMode):
			return domain.OrderResponse{}, invalid("%v", err)
		case errors.Is(err, ledger.ErrOrderNotPaid), errors.Is(err, ledger.ErrNotToday), errors.Is(err, ledger.ErrNoPayments):
			return domain.OrderResponse{}, conflict("order %s: %v", order.ID, err)
		}
		return domain.OrderResponse{}, err
	}
	if len(next.PaymentHistory.Entries) == len(order.PaymentHistory.Entries) {
		return domain.OrderResponse{Order: *order}, nil
	}

	saved, err := s.repo.UpdateOrder(ctx, next)
	if err != nil {
		return domain.OrderResponse{}, err
	}
	s.metrics.LedgerEntry(domain.LedgerActionPaymentModeChange)
	s.logAudit(ctx, saved.BranchID, "payment_mode_change", "order", saved.ID, fmt.Sprintf("mode=%s", mode))
	return domain.OrderResponse{Order: *saved}, nil
}

func (s *Service) GetPaymentHistory(ctx context.Context, id string) (domain.PaymentHistory, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.PaymentHistory{}, invalid("order id is required")
	}
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return domain.PaymentHistory{}, err
	}
	return order.PaymentHistory, nil
}

func validateOrderStatus(status string) error {
	switch status {
	case domain.OrderStatusPaid, domain.OrderStatusUnpaid, domain.OrderStatusPartial:
		return nil
	}
	return invalid("unknown order status %q", status)
}

func validateAmounts(amounts ...decimal.Decimal) error {
	for _, amount := range amounts {
		if amount.IsNegative() {
			return invalid("amounts must not be negative")
		}
	}
	return nil
}

func normalizePayments(payments []domain.Payment) ([]domain.Payment, error) {
	out := make([]domain.Payment, 0, len(payments))
	for i, payment := range payments {
		paymentType := strings.ToLower(strings.TrimSpace(payment.Type))
		if paymentType == "" {
			return nil, invalid("payments[%d].type is required", i)
		}
		if payment.Amount.IsNegative() {
			return nil, invalid("payments[%d].amount must not be negative", i)
		}
		out = append(out, domain.Payment{
			Type:       paymentType,
			Amount:     payment.Amount,
			MethodType: strings.TrimSpace(payment.MethodType),
		})
	}
	return out, nil
}
