package service

import (
	"context"
	"log"
	"strings"

	"totalhealth/backend/internal/businessday"
	"totalhealth/backend/internal/cache"
	"totalhealth/backend/internal/domain"
)

// GetDaySales returns the day-close report of (branch, date), reading through
// the report cache.
func (s *Service) GetDaySales(ctx context.Context, branchID string, date string) (domain.DaySales, error) {
	branchID = s.branchOrDefault(branchID)
	day, err := s.resolveDate(date)
	if err != nil {
		return domain.DaySales{}, err
	}

	key := cache.DaySalesKey(branchID, day.String())
	if cached, ok := s.cachedDaySales(ctx, key); ok {
		return s.withDaySalesDetails(ctx, cached), nil
	}

	report, err := s.repo.GetDaySales(ctx, branchID, day.String())
	if err != nil {
		return domain.DaySales{}, err
	}
	s.cacheDaySales(ctx, *report)
	return s.withDaySalesDetails(ctx, *report), nil
}

func (s *Service) GetDaySalesByID(ctx context.Context, id string) (domain.DaySales, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.DaySales{}, invalid("report id is required")
	}

	if cached, ok := s.cachedDaySales(ctx, cache.DaySalesIDKey(id)); ok {
		return s.withDaySalesDetails(ctx, cached), nil
	}

	report, err := s.repo.GetDaySalesByID(ctx, id)
	if err != nil {
		return domain.DaySales{}, err
	}
	s.cacheDaySales(ctx, *report)
	return s.withDaySalesDetails(ctx, *report), nil
}

// ListDaySales returns the reports of a branch with date in [from, to].
// Either bound may be empty.
func (s *Service) ListDaySales(ctx context.Context, branchID string, from string, to string) (domain.DaySalesListResponse, error) {
	branchID = s.branchOrDefault(branchID)

	var err error
	if from, err = normalizeDate(from); err != nil {
		return domain.DaySalesListResponse{}, err
	}
	if to, err = normalizeDate(to); err != nil {
		return domain.DaySalesListResponse{}, err
	}
	if from != "" && to != "" && from > to {
		return domain.DaySalesListResponse{}, invalid("from must not be after to")
	}

	reports, err := s.repo.ListDaySales(ctx, branchID, from, to)
	if err != nil {
		return domain.DaySalesListResponse{}, err
	}
	for i := range reports {
		reports[i] = s.withDaySalesDetails(ctx, reports[i])
	}
	return domain.DaySalesListResponse{Reports: reports}, nil
}

// GetDayClose returns the whole-day record of a day closed without shifts.
func (s *Service) GetDayClose(ctx context.Context, branchID string, date string) (domain.DayClose, error) {
	branchID = s.branchOrDefault(branchID)
	day, err := s.resolveDate(date)
	if err != nil {
		return domain.DayClose{}, err
	}

	dayClose, err := s.repo.GetDayClose(ctx, branchID, day.String())
	if err != nil {
		return domain.DayClose{}, err
	}
	dayClose.CreatedByDetails = s.userDetails(ctx, dayClose.CreatedBy)
	dayClose.ClosedByDetails = s.userDetails(ctx, dayClose.ClosedBy)
	return *dayClose, nil
}

func (s *Service) cachedDaySales(ctx context.Context, key string) (domain.DaySales, bool) {
	cached, ok, err := s.reports.Get(ctx, key)
	if err != nil {
		log.Printf("[cache] WARN: failed to read %s: %v", key, err)
		return domain.DaySales{}, false
	}
	if !ok || cached == nil {
		return domain.DaySales{}, false
	}
	return *cached, true
}

func (s *Service) withDaySalesDetails(ctx context.Context, report domain.DaySales) domain.DaySales {
	report.ClosedByDetails = s.userDetails(ctx, report.ClosedBy)
	return report
}

func normalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	date, err := businessday.ParseDate(raw)
	if err != nil {
		return "", invalid("date %q: %v", raw, err)
	}
	return date.String(), nil
}
