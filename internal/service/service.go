package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"totalhealth/backend/internal/businessday"
	"totalhealth/backend/internal/cache"
	"totalhealth/backend/internal/domain"
	"totalhealth/backend/internal/metrics"
	"totalhealth/backend/internal/sales"
	"totalhealth/backend/internal/store"
	"totalhealth/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const defaultReportTTL = time.Hour

type Service struct {
	repo            store.Repository
	reports         cache.ReportCache
	reportTTL       time.Duration
	clock           *businessday.Clock
	aggregator      *sales.Aggregator
	metrics         *metrics.Recorder
	locks           *keyedLocks
	defaultBranchID string
}

// New wires the service. reports and recorder may be nil; clock defaults to
// the wall clock in the default business timezone.
func New(repo store.Repository, reports cache.ReportCache, clock *businessday.Clock, recorder *metrics.Recorder, defaultBranchID string) *Service {
	if defaultBranchID == "" {
		defaultBranchID = "main-branch"
	}
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	if clock == nil {
		fallback, err := businessday.NewClock(businessday.DefaultTimezone)
		if err != nil {
			log.Fatalf("[service] failed to load default timezone: %v", err)
		}
		clock = fallback
	}

	return &Service{
		repo:            repo,
		reports:         reports,
		reportTTL:       defaultReportTTL,
		clock:           clock,
		aggregator:      sales.NewAggregator(repo),
		metrics:         recorder,
		locks:           newKeyedLocks(),
		defaultBranchID: defaultBranchID,
	}
}

func (s *Service) SetReportCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		s.reportTTL = ttl
	}
}

func (s *Service) Clock() *businessday.Clock {
	return s.clock
}

func (s *Service) branchOrDefault(branchID string) string {
	branchID = strings.TrimSpace(branchID)
	if branchID == "" {
		return s.defaultBranchID
	}
	return branchID
}

func (s *Service) resolveDate(raw string) (businessday.Date, error) {
	date, err := s.clock.Resolve(raw)
	if err != nil {
		return "", invalid("date %q: %v", raw, err)
	}
	return date, nil
}

// lockBranch serialises open, close, day-close and purge for one branch.
func (s *Service) lockBranch(branchID string) func() {
	return s.locks.lock("branch:" + branchID)
}

func (s *Service) lockOrder(orderID string) func() {
	return s.locks.lock("order:" + orderID)
}

func actorOrSystem(ctx context.Context) domain.Actor {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Username == "" {
		return domain.Actor{Username: "system", Role: "system"}
	}
	return actor
}

func requireRole(ctx context.Context, roles ...string) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || !slices.Contains(roles, actor.Role) {
		return domain.Actor{}, fmt.Errorf("%w: %s role required", ErrForbidden, strings.Join(roles, " or "))
	}
	return actor, nil
}

// aggregate runs the sales aggregator and turns a degradation into a
// warning string; it never fails.
func (s *Service) aggregate(ctx context.Context, scope string, branchID string, from time.Time, to time.Time) (domain.SalesSnapshot, []string) {
	res := s.aggregator.Aggregate(ctx, branchID, from, to)
	if res.Degraded() {
		s.metrics.AggregationDegraded(scope)
		return res.Snapshot, []string{res.Warning.Error()}
	}
	return res.Snapshot, nil
}

// dayClosed reports whether (branchID, date) already has a day-close record
// of any kind.
func (s *Service) dayClosed(ctx context.Context, branchID string, date businessday.Date) (bool, error) {
	if _, err := s.repo.GetDaySales(ctx, branchID, date.String()); err == nil {
		return true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	if _, err := s.repo.GetDayClose(ctx, branchID, date.String()); err == nil {
		return true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	closed, err := s.repo.ListShifts(ctx, store.ShiftFilter{
		BranchID: branchID,
		Date:     date.String(),
		Status:   domain.ShiftStatusDayClose,
		Limit:    1,
	})
	if err != nil {
		return false, err
	}
	return len(closed) > 0, nil
}

// userDetails resolves display attribution. A missing user yields nil.
func (s *Service) userDetails(ctx context.Context, username string) *domain.UserProfile {
	if strings.TrimSpace(username) == "" {
		return nil
	}
	profile, err := s.repo.GetUserProfile(ctx, username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[service] WARN: failed to resolve user %s: %v", username, err)
		}
		return nil
	}
	return profile
}

func (s *Service) withShiftDetails(ctx context.Context, shift domain.Shift) domain.Shift {
	shift.CreatedByDetails = s.userDetails(ctx, shift.CreatedBy)
	shift.ClosedByDetails = s.userDetails(ctx, shift.ClosedBy)
	return shift
}

func (s *Service) ListAuditLogs(ctx context.Context, branchID string, date string, limit int) ([]domain.AuditLog, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	branchID = s.branchOrDefault(branchID)
	if limit < 1 {
		limit = 100
	}

	day, err := s.resolveDate(date)
	if err != nil {
		return nil, err
	}
	from, to := day.Bounds(s.clock.Location())
	return s.repo.ListAuditLogs(ctx, branchID, from, to.Add(time.Nanosecond), limit)
}

func (s *Service) logAudit(ctx context.Context, branchID string, action string, entityType string, entityID string, detail string) {
	branchID = s.branchOrDefault(branchID)
	actor := actorOrSystem(ctx)

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		BranchID:      branchID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.clock.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func dueAmount(order domain.Order, paid decimal.Decimal) decimal.Decimal {
	owed := order.PayableAmount
	if owed.IsZero() {
		owed = order.Total
	}
	due := owed.Sub(paid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}
