package memory

import (
	"cmp"
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"totalhealth/backend/internal/domain"
	"totalhealth/backend/internal/store"
	"totalhealth/backend/internal/xid"
)

type Store struct {
	mu                sync.RWMutex
	ordersByID        map[string]domain.Order
	shiftsByID        map[string]domain.Shift
	openShiftByBranch map[string]string
	dayClosesByKey    map[string]domain.DayClose
	daySalesByID      map[string]domain.DaySales
	daySalesByKey     map[string]string
	auditLogs         []domain.AuditLog
	usersByUsername   map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD, SEED_MANAGER_PASSWORD and
// SEED_CASHIER_PASSWORD. If unset, hardcoded dev defaults are used with a
// warning. These credentials are never used in production (the backend uses
// PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	managerPwd := envOr("SEED_MANAGER_PASSWORD", "manager123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_MANAGER_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD, SEED_MANAGER_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
		name     string
	}{
		{"admin", adminPwd, domain.RoleAdmin, "Branch Admin"},
		{"manager", managerPwd, domain.RoleManager, "Floor Manager"},
		{"cashier", cashierPwd, domain.RoleCashier, "Front Cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Name:      u.name,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		ordersByID:        make(map[string]domain.Order),
		shiftsByID:        make(map[string]domain.Shift),
		openShiftByBranch: make(map[string]string),
		dayClosesByKey:    make(map[string]domain.DayClose),
		daySalesByID:      make(map[string]domain.DaySales),
		daySalesByKey:     make(map[string]string),
		auditLogs:         make([]domain.AuditLog, 0, 128),
		usersByUsername:   make(map[string]domain.UserAccount),
	}
}

func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()
	return s
}

func (s *Store) CreateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	if strings.TrimSpace(order.BranchID) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" {
		order.ID = xid.New("order")
	}
	if _, exists := s.ordersByID[order.ID]; exists {
		return nil, store.ErrConflict
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	s.ordersByID[order.ID] = cloneOrder(order)
	copyOrder := cloneOrder(order)
	return &copyOrder, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyOrder := cloneOrder(order)
	return &copyOrder, nil
}

func (s *Store) UpdateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.ordersByID[order.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	order.CreatedAt = existing.CreatedAt
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = time.Now().UTC()
	}
	s.ordersByID[order.ID] = cloneOrder(order)
	copyOrder := cloneOrder(order)
	return &copyOrder, nil
}

func (s *Store) ListOrdersTouched(_ context.Context, branchID string, from time.Time, to time.Time) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0, 64)
	for _, order := range s.ordersByID {
		if branchID != "" && order.BranchID != branchID {
			continue
		}
		if !within(order.CreatedAt, from, to) && !within(order.UpdatedAt, from, to) {
			continue
		}
		result = append(result, cloneOrder(order))
	}
	sortOrders(result)
	return result, nil
}

func (s *Store) ListUnpaidOrders(_ context.Context, branchID string, from time.Time, to time.Time) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range s.ordersByID {
		if order.BranchID != branchID || !owesMoney(order.Status) {
			continue
		}
		if order.Canceled || order.IsDeleted || !within(order.CreatedAt, from, to) {
			continue
		}
		result = append(result, cloneOrder(order))
	}
	sortOrders(result)
	return result, nil
}

func owesMoney(status string) bool {
	return status == domain.OrderStatusUnpaid || status == domain.OrderStatusPartial
}

func (s *Store) CreateShift(_ context.Context, shift domain.Shift) (*domain.Shift, error) {
	if strings.TrimSpace(shift.BranchID) == "" || strings.TrimSpace(shift.StartDate) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if shift.Status == domain.ShiftStatusOpen {
		if _, exists := s.openShiftByBranch[shift.BranchID]; exists {
			return nil, store.ErrConflict
		}
	}
	for _, existing := range s.shiftsByID {
		if existing.BranchID == shift.BranchID && existing.StartDate == shift.StartDate && existing.ShiftNumber == shift.ShiftNumber {
			return nil, store.ErrConflict
		}
	}
	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	now := time.Now().UTC()
	if shift.CreatedAt.IsZero() {
		shift.CreatedAt = now
	}
	shift.UpdatedAt = shift.CreatedAt

	s.shiftsByID[shift.ID] = cloneShift(shift)
	if shift.Status == domain.ShiftStatusOpen {
		s.openShiftByBranch[shift.BranchID] = shift.ID
	}
	copyShift := cloneShift(shift)
	return &copyShift, nil
}

func (s *Store) GetOpenShift(_ context.Context, branchID string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shiftID, exists := s.openShiftByBranch[branchID]
	if !exists {
		return nil, store.ErrNotFound
	}
	shift, exists := s.shiftsByID[shiftID]
	if !exists || shift.Status != domain.ShiftStatusOpen {
		return nil, store.ErrNotFound
	}
	copyShift := cloneShift(shift)
	return &copyShift, nil
}

func (s *Store) GetShiftByID(_ context.Context, id string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shift, exists := s.shiftsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyShift := cloneShift(shift)
	return &copyShift, nil
}

func (s *Store) MaxShiftNumber(_ context.Context, branchID string, date string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	maxNumber := 0
	for _, shift := range s.shiftsByID {
		if shift.BranchID == branchID && shift.StartDate == date && shift.ShiftNumber > maxNumber {
			maxNumber = shift.ShiftNumber
		}
	}
	return maxNumber, nil
}

// CloseOpenShift replaces the stored open shift with the given closed state.
// It fails with ErrNotFound when the shift is no longer open.
func (s *Store) CloseOpenShift(_ context.Context, shift domain.Shift) (*domain.Shift, error) {
	if shift.Status != domain.ShiftStatusClosed {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.shiftsByID[shift.ID]
	if !exists || existing.Status != domain.ShiftStatusOpen {
		return nil, store.ErrNotFound
	}
	shift.BranchID = existing.BranchID
	shift.StartDate = existing.StartDate
	shift.ShiftNumber = existing.ShiftNumber
	shift.CreatedAt = existing.CreatedAt
	if shift.Sales == nil {
		shift.Sales = existing.Sales
	}
	shift.UpdatedAt = time.Now().UTC()

	delete(s.openShiftByBranch, existing.BranchID)
	s.shiftsByID[shift.ID] = cloneShift(shift)
	copyShift := cloneShift(shift)
	return &copyShift, nil
}

func (s *Store) ListShifts(_ context.Context, filter store.ShiftFilter) ([]domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Shift, 0, 16)
	for _, shift := range s.shiftsByID {
		if filter.BranchID != "" && shift.BranchID != filter.BranchID {
			continue
		}
		if filter.Date != "" && shift.StartDate != filter.Date {
			continue
		}
		if filter.From != "" && shift.StartDate < filter.From {
			continue
		}
		if filter.To != "" && shift.StartDate > filter.To {
			continue
		}
		if filter.Status != "" && shift.Status != filter.Status {
			continue
		}
		result = append(result, cloneShift(shift))
	}
	slices.SortFunc(result, func(a, b domain.Shift) int {
		if c := cmp.Compare(a.StartDate, b.StartDate); c != 0 {
			return c
		}
		if c := cmp.Compare(a.ShiftNumber, b.ShiftNumber); c != 0 {
			return c
		}
		return cmp.Compare(a.BranchID, b.BranchID)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) PurgeShifts(_ context.Context, branchID string, date string) (int, error) {
	if strings.TrimSpace(branchID) == "" || strings.TrimSpace(date) == "" {
		return 0, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, shift := range s.shiftsByID {
		if shift.BranchID != branchID || shift.StartDate != date {
			continue
		}
		if s.openShiftByBranch[branchID] == id {
			delete(s.openShiftByBranch, branchID)
		}
		delete(s.shiftsByID, id)
		deleted++
	}
	return deleted, nil
}

func (s *Store) GetDayClose(_ context.Context, branchID string, date string) (*domain.DayClose, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dayClose, exists := s.dayClosesByKey[dayKey(branchID, date)]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &dayClose, nil
}

func (s *Store) GetDaySales(_ context.Context, branchID string, date string) (*domain.DaySales, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.daySalesByKey[dayKey(branchID, date)]
	if !exists {
		return nil, store.ErrNotFound
	}
	report := cloneDaySales(s.daySalesByID[id])
	return &report, nil
}

func (s *Store) GetDaySalesByID(_ context.Context, id string) (*domain.DaySales, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, exists := s.daySalesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	report = cloneDaySales(report)
	return &report, nil
}

func (s *Store) ListDaySales(_ context.Context, branchID string, from string, to string) ([]domain.DaySales, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.DaySales, 0, 16)
	for _, report := range s.daySalesByID {
		if branchID != "" && report.BranchID != branchID {
			continue
		}
		if from != "" && report.Date < from {
			continue
		}
		if to != "" && report.Date > to {
			continue
		}
		result = append(result, cloneDaySales(report))
	}
	slices.SortFunc(result, func(a, b domain.DaySales) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.BranchID, b.BranchID)
	})
	return result, nil
}

// CommitDayClose validates the whole commit before touching any map so a
// rejected commit leaves the store unchanged.
func (s *Store) CommitDayClose(_ context.Context, commit store.DayCloseCommit) (*domain.DaySales, error) {
	if strings.TrimSpace(commit.BranchID) == "" || strings.TrimSpace(commit.Date) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(commit.BranchID, commit.Date)
	if _, exists := s.daySalesByKey[key]; exists {
		return nil, store.ErrConflict
	}
	if _, exists := s.dayClosesByKey[key]; exists {
		return nil, store.ErrConflict
	}
	if commit.DayClose != nil {
		for _, shift := range s.shiftsByID {
			if shift.BranchID == commit.BranchID && shift.StartDate == commit.Date {
				return nil, store.ErrConflict
			}
		}
	}
	for _, shift := range commit.Shifts {
		existing, exists := s.shiftsByID[shift.ID]
		if !exists {
			return nil, store.ErrNotFound
		}
		if existing.BranchID != commit.BranchID || existing.StartDate != commit.Date {
			return nil, store.ErrInvalidInput
		}
	}

	now := time.Now().UTC()
	for _, shift := range commit.Shifts {
		existing := s.shiftsByID[shift.ID]
		shift.CreatedAt = existing.CreatedAt
		shift.UpdatedAt = now
		if s.openShiftByBranch[commit.BranchID] == shift.ID {
			delete(s.openShiftByBranch, commit.BranchID)
		}
		s.shiftsByID[shift.ID] = cloneShift(shift)
	}
	if commit.DayClose != nil {
		dayClose := *commit.DayClose
		if dayClose.ID == "" {
			dayClose.ID = xid.New("dayclose")
		}
		if dayClose.CreatedAt.IsZero() {
			dayClose.CreatedAt = now
		}
		s.dayClosesByKey[key] = dayClose
		commit.DaySales.DayCloseID = dayClose.ID
	}

	report := commit.DaySales
	if report.ID == "" {
		report.ID = xid.New("daysales")
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	s.daySalesByID[report.ID] = cloneDaySales(report)
	s.daySalesByKey[key] = report.ID

	report = cloneDaySales(report)
	return &report, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmp.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) GetUserProfile(_ context.Context, username string) (*domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByUsername[strings.ToLower(strings.TrimSpace(username))]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &domain.UserProfile{
		ID:    user.Username,
		Name:  user.Name,
		Email: user.Email,
		Phone: user.Phone,
	}, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, branchID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if branchID != "" && entry.BranchID != branchID {
			continue
		}
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmp.Compare(b.ID, a.ID)
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func dayKey(branchID string, date string) string {
	return branchID + "::" + date
}

func within(t time.Time, from time.Time, to time.Time) bool {
	return !t.IsZero() && !t.Before(from) && !t.After(to)
}

func sortOrders(orders []domain.Order) {
	slices.SortFunc(orders, func(a, b domain.Order) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func cloneOrder(src domain.Order) domain.Order {
	dst := src
	dst.Payments = slices.Clone(src.Payments)
	if src.CumulativePaid != nil {
		paid := *src.CumulativePaid
		dst.CumulativePaid = &paid
	}
	dst.PaymentHistory.Entries = make([]domain.PaymentHistoryEntry, 0, len(src.PaymentHistory.Entries))
	for _, entry := range src.PaymentHistory.Entries {
		entry.Payments = slices.Clone(entry.Payments)
		dst.PaymentHistory.Entries = append(dst.PaymentHistory.Entries, entry)
	}
	dst.PaymentHistory.ChangeSequence = make([]domain.PaymentModeChange, 0, len(src.PaymentHistory.ChangeSequence))
	for _, change := range src.PaymentHistory.ChangeSequence {
		change.From = slices.Clone(change.From)
		change.To = slices.Clone(change.To)
		dst.PaymentHistory.ChangeSequence = append(dst.PaymentHistory.ChangeSequence, change)
	}
	return dst
}

func cloneShift(src domain.Shift) domain.Shift {
	dst := src
	if src.EndTime != nil {
		endTime := *src.EndTime
		dst.EndTime = &endTime
	}
	if src.LogoutTime != nil {
		logoutTime := *src.LogoutTime
		dst.LogoutTime = &logoutTime
	}
	if src.Denominations != nil {
		denominations := *src.Denominations
		dst.Denominations = &denominations
	}
	if src.Sales != nil {
		sales := *src.Sales
		dst.Sales = &sales
	}
	dst.CreatedByDetails = nil
	dst.ClosedByDetails = nil
	return dst
}

func cloneDaySales(src domain.DaySales) domain.DaySales {
	dst := src
	dst.Shifts = make([]domain.ShiftSummary, 0, len(src.Shifts))
	for _, summary := range src.Shifts {
		if summary.EndTime != nil {
			endTime := *summary.EndTime
			summary.EndTime = &endTime
		}
		if summary.LogoutTime != nil {
			logoutTime := *summary.LogoutTime
			summary.LogoutTime = &logoutTime
		}
		dst.Shifts = append(dst.Shifts, summary)
	}
	dst.ClosedByDetails = nil
	return dst
}
