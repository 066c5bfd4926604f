package cache

import (
	"context"
	"time"

	"totalhealth/backend/internal/domain"
)

// ReportCache stores DaySales reads. DaySales records are write-once, so a
// cached entry never goes stale; the TTL only bounds memory use.
type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.DaySales, bool, error)
	Set(ctx context.Context, key string, value *domain.DaySales, ttl time.Duration) error
}

func DaySalesKey(branchID string, date string) string {
	return "daysales:day:" + branchID + ":" + date
}

func DaySalesIDKey(id string) string {
	return "daysales:id:" + id
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (*domain.DaySales, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *domain.DaySales, _ time.Duration) error {
	return nil
}
