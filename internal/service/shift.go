package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"totalhealth/backend/internal/businessday"
	"totalhealth/backend/internal/denomination"
	"totalhealth/backend/internal/domain"
	"totalhealth/backend/internal/metrics"
	"totalhealth/backend/internal/store"
)

// OpenShift starts a new shift for the branch on the requested business day
// (today when omitted).
func (s *Service) OpenShift(ctx context.Context, req domain.ShiftOpenRequest) (domain.ShiftResponse, error) {
	branchID := s.branchOrDefault(req.BranchID)
	date, err := s.resolveDate(req.Date)
	if err != nil {
		s.metrics.ShiftOperation("open", metrics.OutcomeInvalid)
		return domain.ShiftResponse{}, err
	}

	startTime := s.clock.Now()
	if strings.TrimSpace(req.StartTime) != "" {
		startTime, err = s.clock.ParseTimeOfDay(date, req.StartTime)
		if err != nil {
			s.metrics.ShiftOperation("open", metrics.OutcomeInvalid)
			return domain.ShiftResponse{}, invalid("startTime %q: %v", req.StartTime, err)
		}
	}

	var endTime *time.Time
	if strings.TrimSpace(req.EndTime) != "" {
		end, err := s.clock.ParseTimeOfDay(date, req.EndTime)
		if err != nil {
			s.metrics.ShiftOperation("open", metrics.OutcomeInvalid)
			return domain.ShiftResponse{}, invalid("endTime %q: %v", req.EndTime, err)
		}
		// A wall-clock end at or before the start runs past midnight.
		if !end.After(startTime) {
			end = end.AddDate(0, 0, 1)
		}
		if !end.After(startTime) {
			s.metrics.ShiftOperation("open", metrics.OutcomeInvalid)
			return domain.ShiftResponse{}, invalid("endTime must be after startTime")
		}
		endTime = &end
	}

	unlock := s.lockBranch(branchID)
	defer unlock()

	closed, err := s.dayClosed(ctx, branchID, date)
	if err != nil {
		s.metrics.ShiftOperation("open", metrics.OutcomeError)
		return domain.ShiftResponse{}, err
	}
	if closed {
		s.metrics.ShiftOperation("open", metrics.OutcomeConflict)
		return domain.ShiftResponse{}, conflict("business day %s is already closed for branch %s", date, branchID)
	}

	if open, err := s.repo.GetOpenShift(ctx, branchID); err == nil {
		s.metrics.ShiftOperation("open", metrics.OutcomeConflict)
		return domain.ShiftResponse{}, conflict("shift %d (%s) is already open for branch %s", open.ShiftNumber, open.ID, branchID)
	} else if !errors.Is(err, store.ErrNotFound) {
		s.metrics.ShiftOperation("open", metrics.OutcomeError)
		return domain.ShiftResponse{}, err
	}

	maxNumber, err := s.repo.MaxShiftNumber(ctx, branchID, date.String())
	if err != nil {
		s.metrics.ShiftOperation("open", metrics.OutcomeError)
		return domain.ShiftResponse{}, err
	}

	actor := actorOrSystem(ctx)
	now := s.clock.Now().UTC()
	shift := domain.Shift{
		ShiftNumber:  maxNumber + 1,
		BranchID:     branchID,
		StartDate:    date.String(),
		StartTime:    startTime.UTC(),
		EndTime:      utcPtr(endTime),
		ScheduledEnd: endTime != nil,
		Status:       domain.ShiftStatusOpen,
		CreatedBy:    actor.Username,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if endTime != nil {
		shift.EndDate = s.clock.DateOf(*endTime).String()
	}

	saved, err := s.repo.CreateShift(ctx, shift)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.metrics.ShiftOperation("open", metrics.OutcomeConflict)
			return domain.ShiftResponse{}, conflict("a shift is already open for branch %s", branchID)
		}
		s.metrics.ShiftOperation("open", metrics.OutcomeError)
		return domain.ShiftResponse{}, err
	}

	s.metrics.ShiftOperation("open", metrics.OutcomeOK)
	s.logAudit(ctx, branchID, "shift_open", "shift", saved.ID, fmt.Sprintf("date=%s,number=%d", saved.StartDate, saved.ShiftNumber))

	return domain.ShiftResponse{Shift: s.withShiftDetails(ctx, *saved)}, nil
}

// CloseShift closes the branch's open shift, snapshots its sales over
// [startTime, logoutTime] and reconciles the counted cash when supplied.
func (s *Service) CloseShift(ctx context.Context, req domain.ShiftCloseRequest) (domain.ShiftResponse, error) {
	branchID := s.branchOrDefault(req.BranchID)

	var counted *domain.Denomination
	if req.Denominations != nil {
		if err := denomination.Validate(*req.Denominations); err != nil {
			s.metrics.ShiftOperation("close", metrics.OutcomeInvalid)
			return domain.ShiftResponse{}, invalid("%v", err)
		}
		reconciled := denomination.Reconcile(*req.Denominations)
		counted = &reconciled
	}

	unlock := s.lockBranch(branchID)
	defer unlock()

	open, err := s.repo.GetOpenShift(ctx, branchID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.ShiftOperation("close", metrics.OutcomeConflict)
			return domain.ShiftResponse{}, conflict("no open shift for branch %s", branchID)
		}
		s.metrics.ShiftOperation("close", metrics.OutcomeError)
		return domain.ShiftResponse{}, err
	}

	now := s.clock.Now()
	logoutTime := now
	if raw := strings.TrimSpace(req.LogoutTime); raw != "" {
		logoutTime, err = s.clock.ParseTimeOfDay(businessday.Date(open.StartDate), raw)
		if err != nil {
			s.metrics.ShiftOperation("close", metrics.OutcomeInvalid)
			return domain.ShiftResponse{}, invalid("logoutTime %q: %v", req.LogoutTime, err)
		}
		// A wall-clock logout earlier than the start falls on the next day.
		if _, tsErr := time.Parse(time.RFC3339, raw); tsErr != nil && logoutTime.Before(open.StartTime) {
			logoutTime = logoutTime.AddDate(0, 0, 1)
		}
		if logoutTime.After(now) {
			s.metrics.ShiftOperation("close", metrics.OutcomeInvalid)
			return domain.ShiftResponse{}, invalid("logoutTime %q is in the future", req.LogoutTime)
		}
	}
	logoutTime = logoutTime.UTC()
	if logoutTime.Before(open.StartTime) {
		s.metrics.ShiftOperation("close", metrics.OutcomeInvalid)
		return domain.ShiftResponse{}, invalid("logoutTime is before the shift started")
	}

	var warnings []string
	if open.ScheduledEnd && open.EndTime != nil && logoutTime.Before(*open.EndTime) {
		warnings = append(warnings, fmt.Sprintf("shift closed early: scheduled to end at %s", open.EndTime.In(s.clock.Location()).Format(time.RFC3339)))
	}

	closing := *open
	if closing.Sales == nil {
		snapshot, degraded := s.aggregate(ctx, "shift", branchID, open.StartTime, logoutTime)
		warnings = append(warnings, degraded...)
		closing.Sales = &snapshot
	}

	actor := actorOrSystem(ctx)
	closing.Status = domain.ShiftStatusClosed
	closing.LogoutTime = &logoutTime
	if !closing.ScheduledEnd || closing.EndTime == nil {
		closing.EndTime = &logoutTime
	}
	closing.EndDate = s.clock.DateOf(*closing.EndTime).String()
	closing.ClosedBy = actor.Username
	if counted != nil {
		closing.Denominations = counted
	}

	closed, err := s.repo.CloseOpenShift(ctx, closing)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.ShiftOperation("close", metrics.OutcomeConflict)
			return domain.ShiftResponse{}, conflict("shift %s is no longer open", open.ID)
		}
		s.metrics.ShiftOperation("close", metrics.OutcomeError)
		return domain.ShiftResponse{}, err
	}

	resp := domain.ShiftResponse{Warnings: warnings}
	if closed.Denominations != nil && closed.Sales != nil {
		variance := denomination.Variance(*closed.Denominations, closed.Sales.Payments.Cash)
		resp.CashVariance = &variance
		s.metrics.CashVariance("shift", variance.InexactFloat64())
	}

	s.metrics.ShiftOperation("close", metrics.OutcomeOK)
	s.logAudit(ctx, branchID, "shift_close", "shift", closed.ID, closeDetail(closed, resp.CashVariance))

	resp.Shift = s.withShiftDetails(ctx, *closed)
	return resp, nil
}

func (s *Service) GetOpenShift(ctx context.Context, branchID string) (domain.ShiftResponse, error) {
	shift, err := s.repo.GetOpenShift(ctx, s.branchOrDefault(branchID))
	if err != nil {
		return domain.ShiftResponse{}, err
	}
	return domain.ShiftResponse{Shift: s.withShiftDetails(ctx, *shift)}, nil
}

func (s *Service) GetShift(ctx context.Context, id string) (domain.ShiftResponse, error) {
	if strings.TrimSpace(id) == "" {
		return domain.ShiftResponse{}, invalid("shift id is required")
	}
	shift, err := s.repo.GetShiftByID(ctx, id)
	if err != nil {
		return domain.ShiftResponse{}, err
	}
	return domain.ShiftResponse{Shift: s.withShiftDetails(ctx, *shift)}, nil
}

// ListShifts accepts an exact date or a from/to range; dates are YYYY-MM-DD.
func (s *Service) ListShifts(ctx context.Context, filter store.ShiftFilter) (domain.ShiftListResponse, error) {
	filter.BranchID = s.branchOrDefault(filter.BranchID)
	for _, raw := range []*string{&filter.Date, &filter.From, &filter.To} {
		if strings.TrimSpace(*raw) == "" {
			*raw = ""
			continue
		}
		parsed, err := businessday.ParseDate(*raw)
		if err != nil {
			return domain.ShiftListResponse{}, invalid("date %q: %v", *raw, err)
		}
		*raw = parsed.String()
	}
	if filter.From != "" && filter.To != "" && filter.From > filter.To {
		return domain.ShiftListResponse{}, invalid("from must not be after to")
	}
	switch filter.Status {
	case "", domain.ShiftStatusOpen, domain.ShiftStatusClosed, domain.ShiftStatusDayClose:
	default:
		return domain.ShiftListResponse{}, invalid("unknown shift status %q", filter.Status)
	}
	if filter.Limit < 1 || filter.Limit > 500 {
		filter.Limit = 500
	}

	shifts, err := s.repo.ListShifts(ctx, filter)
	if err != nil {
		return domain.ShiftListResponse{}, err
	}
	for i := range shifts {
		shifts[i] = s.withShiftDetails(ctx, shifts[i])
	}
	return domain.ShiftListResponse{Shifts: shifts}, nil
}

// PurgeShifts deletes every shift of (branch, date). Closed days are never
// purged. The manager PIN is checked by the caller.
func (s *Service) PurgeShifts(ctx context.Context, branchID string, date string) (domain.ShiftPurgeResponse, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.ShiftPurgeResponse{}, err
	}
	branchID = s.branchOrDefault(branchID)
	if strings.TrimSpace(date) == "" {
		return domain.ShiftPurgeResponse{}, invalid("date is required")
	}
	day, err := s.resolveDate(date)
	if err != nil {
		return domain.ShiftPurgeResponse{}, err
	}

	unlock := s.lockBranch(branchID)
	defer unlock()

	closed, err := s.dayClosed(ctx, branchID, day)
	if err != nil {
		return domain.ShiftPurgeResponse{}, err
	}
	if closed {
		return domain.ShiftPurgeResponse{}, conflict("business day %s is closed for branch %s; its shifts cannot be purged", day, branchID)
	}

	deleted, err := s.repo.PurgeShifts(ctx, branchID, day.String())
	if err != nil {
		return domain.ShiftPurgeResponse{}, err
	}
	s.logAudit(ctx, branchID, "shift_purge", "shift", day.String(), fmt.Sprintf("deleted=%d", deleted))

	return domain.ShiftPurgeResponse{BranchID: branchID, Date: day.String(), Deleted: deleted}, nil
}

func closeDetail(shift *domain.Shift, variance *decimal.Decimal) string {
	detail := fmt.Sprintf("number=%d", shift.ShiftNumber)
	if shift.Sales != nil {
		detail += ",sales=" + shift.Sales.TotalSales.StringFixed(2)
	}
	if variance != nil {
		detail += ",variance=" + variance.StringFixed(2)
	}
	return detail
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	at := t.UTC()
	return &at
}
