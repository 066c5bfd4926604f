package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"totalhealth/backend/internal/cache"
	"totalhealth/backend/internal/denomination"
	"totalhealth/backend/internal/domain"
	"totalhealth/backend/internal/ledger"
	"totalhealth/backend/internal/metrics"
	"totalhealth/backend/internal/sales"
	"totalhealth/backend/internal/store"
	"totalhealth/backend/internal/xid"
)

// CloseDay finalises a business day for a branch. Every shift of the day is
// moved to day-close (or a whole-day DayClose is written when no shift was
// opened) and one DaySales snapshot is committed with them.
//
// A day left with day-close shifts but no DaySales, e.g. after a crash
// mid-way, is resumed instead of rejected.
func (s *Service) CloseDay(ctx context.Context, req domain.DayCloseRequest) (domain.DayCloseResponse, error) {
	actor, err := requireRole(ctx, domain.RoleAdmin, domain.RoleManager)
	if err != nil {
		return domain.DayCloseResponse{}, err
	}
	branchID := s.branchOrDefault(req.BranchID)
	date, err := s.resolveDate(req.Date)
	if err != nil {
		s.metrics.DayClose(metrics.OutcomeInvalid)
		return domain.DayCloseResponse{}, err
	}
	if err := denomination.Validate(req.Denominations); err != nil {
		s.metrics.DayClose(metrics.OutcomeInvalid)
		return domain.DayCloseResponse{}, invalid("%v", err)
	}
	counted := denomination.Reconcile(req.Denominations)
	note := strings.TrimSpace(req.Note)

	unlock := s.lockBranch(branchID)
	defer unlock()

	if _, err := s.repo.GetDaySales(ctx, branchID, date.String()); err == nil {
		s.metrics.DayClose(metrics.OutcomeConflict)
		return domain.DayCloseResponse{}, conflict("business day %s is already closed for branch %s", date, branchID)
	} else if !errors.Is(err, store.ErrNotFound) {
		s.metrics.DayClose(metrics.OutcomeError)
		return domain.DayCloseResponse{}, err
	}
	if _, err := s.repo.GetDayClose(ctx, branchID, date.String()); err == nil {
		s.metrics.DayClose(metrics.OutcomeConflict)
		return domain.DayCloseResponse{}, conflict("business day %s is already closed for branch %s", date, branchID)
	} else if !errors.Is(err, store.ErrNotFound) {
		s.metrics.DayClose(metrics.OutcomeError)
		return domain.DayCloseResponse{}, err
	}

	dayStart, dayEnd := date.Bounds(s.clock.Location())

	unpaid, err := s.repo.ListUnpaidOrders(ctx, branchID, dayStart, dayEnd)
	if err != nil {
		s.metrics.DayClose(metrics.OutcomeError)
		return domain.DayCloseResponse{}, err
	}
	if len(unpaid) > 0 {
		blocking := make([]domain.UnpaidOrder, 0, len(unpaid))
		for _, order := range unpaid {
			blocking = append(blocking, domain.UnpaidOrder{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				DueAmount:   dueAmount(order, ledger.PaidAmount(order)),
			})
		}
		s.metrics.UnpaidRejection()
		s.metrics.DayClose(metrics.OutcomeConflict)
		return domain.DayCloseResponse{}, &ConflictError{
			Reason:       fmt.Sprintf("business day %s for branch %s has unpaid orders", date, branchID),
			UnpaidOrders: blocking,
		}
	}

	shifts, err := s.repo.ListShifts(ctx, store.ShiftFilter{BranchID: branchID, Date: date.String()})
	if err != nil {
		s.metrics.DayClose(metrics.OutcomeError)
		return domain.DayCloseResponse{}, err
	}

	now := s.clock.Now().UTC()
	var warnings []string
	daySnapshot, degraded := s.aggregate(ctx, "day", branchID, dayStart, dayEnd)
	warnings = append(warnings, degraded...)

	report := domain.DaySales{
		ID:           xid.New("daysales"),
		Date:         date.String(),
		BranchID:     branchID,
		DaySales:     daySnapshot,
		DayCloseTime: now,
		ClosedBy:     actor.Username,
		Note:         note,
		Denomination: counted,
		CashVariance: denomination.Variance(counted, daySnapshot.Payments.Cash),
		CreatedAt:    now,
	}
	commit := store.DayCloseCommit{BranchID: branchID, Date: date.String()}
	resp := domain.DayCloseResponse{}

	if len(shifts) == 0 {
		dayClose := domain.DayClose{
			ID:            xid.New("dayclose"),
			BranchID:      branchID,
			StartDate:     date.String(),
			StartTime:     dayStart.UTC(),
			EndDate:       date.String(),
			EndTime:       dayEnd.UTC(),
			Status:        domain.ShiftStatusDayClose,
			CreatedBy:     actor.Username,
			ClosedBy:      actor.Username,
			Note:          note,
			Denominations: counted,
			Sales:         daySnapshot,
			CreatedAt:     now,
		}
		report.DayCloseID = dayClose.ID
		report.ShiftWiseSales = sales.Zero()
		report.Shifts = []domain.ShiftSummary{}
		commit.DayClose = &dayClose
		resp.DayClose = &dayClose
	} else {
		shiftWise := sales.Zero()
		summaries := make([]domain.ShiftSummary, 0, len(shifts))
		transitioned := make([]domain.Shift, 0, len(shifts))

		for _, shift := range shifts {
			switch shift.Status {
			case domain.ShiftStatusDayClose:
				resp.Resumed = true
			case domain.ShiftStatusOpen, domain.ShiftStatusClosed:
				if shift.Status == domain.ShiftStatusOpen {
					logout := now
					shift.LogoutTime = &logout
				}
				if shift.Sales == nil {
					snapshot, degraded := s.aggregate(ctx, "shift", branchID, shift.StartTime, now)
					warnings = append(warnings, degraded...)
					shift.Sales = &snapshot
				}
				end := now
				shift.EndTime = &end
				shift.EndDate = s.clock.DateOf(now).String()
				shift.ClosedBy = actor.Username
				shift.Note = note
				shift.Status = domain.ShiftStatusDayClose
				shift.UpdatedAt = now
				transitioned = append(transitioned, shift)
			default:
				log.Printf("[dayclose] WARN: skipping shift %s with unknown status %q", shift.ID, shift.Status)
				continue
			}

			snapshot := sales.Zero()
			if shift.Sales != nil {
				snapshot = *shift.Sales
			}
			shiftWise = shiftWise.Add(snapshot)
			summaries = append(summaries, domain.ShiftSummary{
				ShiftID:     shift.ID,
				ShiftNumber: shift.ShiftNumber,
				StartTime:   shift.StartTime,
				EndTime:     shift.EndTime,
				LogoutTime:  shift.LogoutTime,
				Sales:       snapshot,
			})
		}
		sort.Slice(summaries, func(i, j int) bool {
			return summaries[i].ShiftNumber < summaries[j].ShiftNumber
		})

		report.ShiftWiseSales = shiftWise
		report.Shifts = summaries
		report.TotalShifts = len(summaries)
		commit.Shifts = transitioned
	}
	commit.DaySales = report

	saved, err := s.repo.CommitDayClose(ctx, commit)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.metrics.DayClose(metrics.OutcomeConflict)
			return domain.DayCloseResponse{}, conflict("business day %s is already closed for branch %s", date, branchID)
		}
		s.metrics.DayClose(metrics.OutcomeError)
		return domain.DayCloseResponse{}, err
	}

	s.cacheDaySales(ctx, *saved)
	s.metrics.DayClose(metrics.OutcomeOK)
	s.metrics.CashVariance("day", saved.CashVariance.InexactFloat64())
	s.logAudit(ctx, branchID, "day_close", "day_sales", saved.ID, dayCloseDetail(*saved, resp.Resumed))

	resp.DaySales = *saved
	resp.DaySales.ClosedByDetails = s.userDetails(ctx, saved.ClosedBy)
	if resp.DayClose != nil {
		resp.DayClose.CreatedByDetails = s.userDetails(ctx, resp.DayClose.CreatedBy)
		resp.DayClose.ClosedByDetails = resp.DaySales.ClosedByDetails
	}
	resp.Warnings = warnings
	return resp, nil
}

func (s *Service) cacheDaySales(ctx context.Context, report domain.DaySales) {
	ttl := s.reportTTL
	if ttl <= 0 {
		ttl = defaultReportTTL
	}
	if err := s.reports.Set(ctx, cache.DaySalesKey(report.BranchID, report.Date), &report, ttl); err != nil {
		log.Printf("[cache] WARN: failed to cache day sales %s: %v", report.ID, err)
		return
	}
	if err := s.reports.Set(ctx, cache.DaySalesIDKey(report.ID), &report, ttl); err != nil {
		log.Printf("[cache] WARN: failed to cache day sales %s by id: %v", report.ID, err)
	}
}

func dayCloseDetail(report domain.DaySales, resumed bool) string {
	return fmt.Sprintf(
		"date=%s,shifts=%d,sales=%s,variance=%s,resumed=%t",
		report.Date,
		report.TotalShifts,
		report.DaySales.TotalSales.StringFixed(2),
		report.CashVariance.StringFixed(2),
		resumed,
	)
}
