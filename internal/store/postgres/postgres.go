package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"totalhealth/backend/internal/domain"
	"totalhealth/backend/internal/store"
	"totalhealth/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

const orderColumns = `id, order_number, branch_id, status, canceled, is_deleted, sales_type, order_type,
	total, payable_amount, total_discount, vat, payments, cumulative_paid, payment_history, created_at, updated_at`

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if strings.TrimSpace(order.BranchID) == "" {
		return nil, store.ErrInvalidInput
	}
	if order.ID == "" {
		order.ID = xid.New("order")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}

	payments, history, err := encodeOrderJSON(order)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, order.ID, order.OrderNumber, order.BranchID, order.Status, order.Canceled, order.IsDeleted,
		order.SalesType, order.OrderType, order.Total, order.PayableAmount, order.TotalDiscount, order.Vat,
		payments, nullDecimal(order.CumulativePaid), history, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	saved := order
	return &saved, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *Store) UpdateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = time.Now().UTC()
	}
	payments, history, err := encodeOrderJSON(order)
	if err != nil {
		return nil, err
	}

	updated, err := scanOrder(s.db.QueryRowContext(ctx, `
		UPDATE orders
		SET order_number = $2, status = $3, canceled = $4, is_deleted = $5, sales_type = $6, order_type = $7,
			total = $8, payable_amount = $9, total_discount = $10, vat = $11, payments = $12,
			cumulative_paid = $13, payment_history = $14, updated_at = $15
		WHERE id = $1
		RETURNING `+orderColumns,
		order.ID, order.OrderNumber, order.Status, order.Canceled, order.IsDeleted, order.SalesType, order.OrderType,
		order.Total, order.PayableAmount, order.TotalDiscount, order.Vat, payments,
		nullDecimal(order.CumulativePaid), history, order.UpdatedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) ListOrdersTouched(ctx context.Context, branchID string, from time.Time, to time.Time) ([]domain.Order, error) {
	return s.queryOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1 = '' OR branch_id = $1)
			AND ((created_at >= $2 AND created_at <= $3) OR (updated_at >= $2 AND updated_at <= $3))
		ORDER BY created_at, id
	`, branchID, from, to)
}

func (s *Store) ListUnpaidOrders(ctx context.Context, branchID string, from time.Time, to time.Time) ([]domain.Order, error) {
	return s.queryOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE branch_id = $1
			AND status IN ('unpaid', 'partial')
			AND canceled = false
			AND is_deleted = false
			AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at, id
	`, branchID, from, to)
}

func (s *Store) queryOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, 64)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

const shiftColumns = `id, shift_number, branch_id, start_date, start_time, end_date, end_time, scheduled_end,
	logout_time, status, created_by, closed_by, note, denominations, sales, created_at, updated_at`

func (s *Store) CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	if strings.TrimSpace(shift.BranchID) == "" || strings.TrimSpace(shift.StartDate) == "" {
		return nil, store.ErrInvalidInput
	}
	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	if shift.CreatedAt.IsZero() {
		shift.CreatedAt = time.Now().UTC()
	}
	shift.UpdatedAt = shift.CreatedAt

	denominations, err := nullJSON(shift.Denominations)
	if err != nil {
		return nil, err
	}
	sales, err := nullJSON(shift.Sales)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO shifts (`+shiftColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, shift.ID, shift.ShiftNumber, shift.BranchID, shift.StartDate, shift.StartTime, shift.EndDate,
		nullTime(shift.EndTime), shift.ScheduledEnd, nullTime(shift.LogoutTime), shift.Status,
		shift.CreatedBy, shift.ClosedBy, shift.Note, denominations, sales, shift.CreatedAt, shift.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	saved := shift
	return &saved, nil
}

func (s *Store) GetOpenShift(ctx context.Context, branchID string) (*domain.Shift, error) {
	return s.getShift(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE branch_id = $1 AND status = 'open'`, branchID)
}

func (s *Store) GetShiftByID(ctx context.Context, id string) (*domain.Shift, error) {
	return s.getShift(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id)
}

func (s *Store) getShift(ctx context.Context, query string, arg string) (*domain.Shift, error) {
	shift, err := scanShift(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &shift, nil
}

func (s *Store) MaxShiftNumber(ctx context.Context, branchID string, date string) (int, error) {
	var maxNumber int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(shift_number), 0)
		FROM shifts
		WHERE branch_id = $1 AND start_date = $2
	`, branchID, date).Scan(&maxNumber)
	return maxNumber, err
}

// CloseOpenShift only matches rows still in the open state, so a concurrent
// close of the same shift sees ErrNotFound. An existing sales snapshot wins
// over the supplied one.
func (s *Store) CloseOpenShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	if shift.Status != domain.ShiftStatusClosed {
		return nil, store.ErrInvalidInput
	}
	denominations, err := nullJSON(shift.Denominations)
	if err != nil {
		return nil, err
	}
	sales, err := nullJSON(shift.Sales)
	if err != nil {
		return nil, err
	}

	closed, err := scanShift(s.db.QueryRowContext(ctx, `
		UPDATE shifts
		SET status = $2, end_date = $3, end_time = $4, logout_time = $5, closed_by = $6, note = $7,
			denominations = $8, sales = COALESCE(sales, $9::jsonb), updated_at = now()
		WHERE id = $1 AND status = 'open'
		RETURNING `+shiftColumns,
		shift.ID, shift.Status, shift.EndDate, nullTime(shift.EndTime), nullTime(shift.LogoutTime),
		shift.ClosedBy, shift.Note, denominations, sales))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &closed, nil
}

func (s *Store) ListShifts(ctx context.Context, filter store.ShiftFilter) ([]domain.Shift, error) {
	conditions := make([]string, 0, 5)
	args := make([]any, 0, 6)
	add := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}
	if filter.BranchID != "" {
		add("branch_id = $%d", filter.BranchID)
	}
	if filter.Date != "" {
		add("start_date = $%d", filter.Date)
	}
	if filter.From != "" {
		add("start_date >= $%d", filter.From)
	}
	if filter.To != "" {
		add("start_date <= $%d", filter.To)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}

	query := `SELECT ` + shiftColumns + ` FROM shifts`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY start_date, shift_number, branch_id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shifts := make([]domain.Shift, 0, 16)
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shifts, nil
}

func (s *Store) PurgeShifts(ctx context.Context, branchID string, date string) (int, error) {
	if strings.TrimSpace(branchID) == "" || strings.TrimSpace(date) == "" {
		return 0, store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM shifts WHERE branch_id = $1 AND start_date = $2`, branchID, date)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

const dayCloseColumns = `id, branch_id, start_date, start_time, end_date, end_time, status,
	created_by, closed_by, note, denominations, sales, created_at`

func (s *Store) GetDayClose(ctx context.Context, branchID string, date string) (*domain.DayClose, error) {
	var dc domain.DayClose
	var denominations, sales []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT `+dayCloseColumns+`
		FROM day_closes
		WHERE branch_id = $1 AND start_date = $2
	`, branchID, date).Scan(
		&dc.ID, &dc.BranchID, &dc.StartDate, &dc.StartTime, &dc.EndDate, &dc.EndTime, &dc.Status,
		&dc.CreatedBy, &dc.ClosedBy, &dc.Note, &denominations, &sales, &dc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(denominations, &dc.Denominations); err != nil {
		return nil, fmt.Errorf("decode day close denominations: %w", err)
	}
	if err := json.Unmarshal(sales, &dc.Sales); err != nil {
		return nil, fmt.Errorf("decode day close sales: %w", err)
	}
	dc.StartTime = dc.StartTime.UTC()
	dc.EndTime = dc.EndTime.UTC()
	dc.CreatedAt = dc.CreatedAt.UTC()
	return &dc, nil
}

const daySalesColumns = `id, date, branch_id, day_close_id, day_sales, shift_wise_sales, shifts, total_shifts,
	day_close_time, closed_by, note, denomination, cash_variance, created_at`

func (s *Store) GetDaySales(ctx context.Context, branchID string, date string) (*domain.DaySales, error) {
	return s.getDaySales(ctx, `SELECT `+daySalesColumns+` FROM day_sales WHERE branch_id = $1 AND date = $2`, branchID, date)
}

func (s *Store) GetDaySalesByID(ctx context.Context, id string) (*domain.DaySales, error) {
	return s.getDaySales(ctx, `SELECT `+daySalesColumns+` FROM day_sales WHERE id = $1`, id)
}

func (s *Store) getDaySales(ctx context.Context, query string, args ...any) (*domain.DaySales, error) {
	report, err := scanDaySales(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &report, nil
}

func (s *Store) ListDaySales(ctx context.Context, branchID string, from string, to string) ([]domain.DaySales, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+daySalesColumns+`
		FROM day_sales
		WHERE ($1 = '' OR branch_id = $1)
			AND ($2 = '' OR date >= $2)
			AND ($3 = '' OR date <= $3)
		ORDER BY date DESC, branch_id
	`, branchID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]domain.DaySales, 0, 16)
	for rows.Next() {
		report, err := scanDaySales(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

// CommitDayClose writes the shift transitions, the optional whole-day record
// and the DaySales row in one transaction. Unique keys on day_closes and
// day_sales turn a concurrent second close into ErrConflict.
func (s *Store) CommitDayClose(ctx context.Context, commit store.DayCloseCommit) (*domain.DaySales, error) {
	if strings.TrimSpace(commit.BranchID) == "" || strings.TrimSpace(commit.Date) == "" {
		return nil, store.ErrInvalidInput
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, shift := range commit.Shifts {
		sales, err := nullJSON(shift.Sales)
		if err != nil {
			return nil, err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE shifts
			SET status = $4, end_date = $5, end_time = $6, closed_by = $7, note = $8,
				sales = $9, logout_time = $10, updated_at = now()
			WHERE id = $1 AND branch_id = $2 AND start_date = $3
		`, shift.ID, commit.BranchID, commit.Date, shift.Status, shift.EndDate, nullTime(shift.EndTime),
			shift.ClosedBy, shift.Note, sales, nullTime(shift.LogoutTime))
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, store.ErrNotFound
		}
	}

	report := commit.DaySales
	if commit.DayClose != nil {
		var shiftsExist bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM shifts WHERE branch_id = $1 AND start_date = $2)
		`, commit.BranchID, commit.Date).Scan(&shiftsExist); err != nil {
			return nil, err
		}
		if shiftsExist {
			return nil, store.ErrConflict
		}

		dc := *commit.DayClose
		if dc.ID == "" {
			dc.ID = xid.New("dayclose")
		}
		if dc.CreatedAt.IsZero() {
			dc.CreatedAt = now
		}
		denominations, err := json.Marshal(dc.Denominations)
		if err != nil {
			return nil, err
		}
		sales, err := json.Marshal(dc.Sales)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO day_closes (`+dayCloseColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		`, dc.ID, dc.BranchID, dc.StartDate, dc.StartTime, dc.EndDate, dc.EndTime, dc.Status,
			dc.CreatedBy, dc.ClosedBy, dc.Note, denominations, sales, dc.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, store.ErrConflict
			}
			return nil, err
		}
		report.DayCloseID = dc.ID
	}

	if report.ID == "" {
		report.ID = xid.New("daysales")
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	daySales, err := json.Marshal(report.DaySales)
	if err != nil {
		return nil, err
	}
	shiftWise, err := json.Marshal(report.ShiftWiseSales)
	if err != nil {
		return nil, err
	}
	summaries := report.Shifts
	if summaries == nil {
		summaries = []domain.ShiftSummary{}
	}
	shifts, err := json.Marshal(summaries)
	if err != nil {
		return nil, err
	}
	denomination, err := json.Marshal(report.Denomination)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO day_sales (`+daySalesColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, report.ID, report.Date, report.BranchID, report.DayCloseID, daySales, shiftWise, shifts, report.TotalShifts,
		report.DayCloseTime, report.ClosedBy, report.Note, denomination, report.CashVariance, report.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	report.Shifts = summaries
	return &report, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, name, email, phone, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
	`, user.Username, user.Password, user.Role, user.Name, user.Email, user.Phone, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, name, email, phone, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Name, &user.Email, &user.Phone, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) GetUserProfile(ctx context.Context, username string) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT username, name, email, phone
		FROM app_users
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username))).Scan(&profile.ID, &profile.Name, &profile.Email, &profile.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, branch_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.BranchID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, branchID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, branch_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE ($1 = '' OR branch_id = $1)
			AND created_at >= $2
			AND created_at < $3
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, branchID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.BranchID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var order domain.Order
	var payments, history []byte
	var cumulative decimal.NullDecimal
	err := row.Scan(
		&order.ID, &order.OrderNumber, &order.BranchID, &order.Status, &order.Canceled, &order.IsDeleted,
		&order.SalesType, &order.OrderType, &order.Total, &order.PayableAmount, &order.TotalDiscount, &order.Vat,
		&payments, &cumulative, &history, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	if err := json.Unmarshal(payments, &order.Payments); err != nil {
		return domain.Order{}, fmt.Errorf("decode order payments: %w", err)
	}
	if err := json.Unmarshal(history, &order.PaymentHistory); err != nil {
		return domain.Order{}, fmt.Errorf("decode order payment history: %w", err)
	}
	if cumulative.Valid {
		paid := cumulative.Decimal
		order.CumulativePaid = &paid
	}
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()
	return order, nil
}

func scanShift(row rowScanner) (domain.Shift, error) {
	var shift domain.Shift
	var endTime, logoutTime sql.NullTime
	var denominations, sales []byte
	err := row.Scan(
		&shift.ID, &shift.ShiftNumber, &shift.BranchID, &shift.StartDate, &shift.StartTime, &shift.EndDate,
		&endTime, &shift.ScheduledEnd, &logoutTime, &shift.Status, &shift.CreatedBy, &shift.ClosedBy,
		&shift.Note, &denominations, &sales, &shift.CreatedAt, &shift.UpdatedAt,
	)
	if err != nil {
		return domain.Shift{}, err
	}
	if len(denominations) > 0 {
		var d domain.Denomination
		if err := json.Unmarshal(denominations, &d); err != nil {
			return domain.Shift{}, fmt.Errorf("decode shift denominations: %w", err)
		}
		shift.Denominations = &d
	}
	if len(sales) > 0 {
		var snapshot domain.SalesSnapshot
		if err := json.Unmarshal(sales, &snapshot); err != nil {
			return domain.Shift{}, fmt.Errorf("decode shift sales: %w", err)
		}
		shift.Sales = &snapshot
	}
	shift.StartTime = shift.StartTime.UTC()
	shift.EndTime = fromNullTime(endTime)
	shift.LogoutTime = fromNullTime(logoutTime)
	shift.CreatedAt = shift.CreatedAt.UTC()
	shift.UpdatedAt = shift.UpdatedAt.UTC()
	return shift, nil
}

func scanDaySales(row rowScanner) (domain.DaySales, error) {
	var report domain.DaySales
	var daySales, shiftWise, shifts, denomination []byte
	err := row.Scan(
		&report.ID, &report.Date, &report.BranchID, &report.DayCloseID, &daySales, &shiftWise, &shifts,
		&report.TotalShifts, &report.DayCloseTime, &report.ClosedBy, &report.Note, &denomination,
		&report.CashVariance, &report.CreatedAt,
	)
	if err != nil {
		return domain.DaySales{}, err
	}
	for _, field := range []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"day sales", daySales, &report.DaySales},
		{"shift wise sales", shiftWise, &report.ShiftWiseSales},
		{"shift summaries", shifts, &report.Shifts},
		{"denomination", denomination, &report.Denomination},
	} {
		if err := json.Unmarshal(field.raw, field.dst); err != nil {
			return domain.DaySales{}, fmt.Errorf("decode %s: %w", field.name, err)
		}
	}
	report.DayCloseTime = report.DayCloseTime.UTC()
	report.CreatedAt = report.CreatedAt.UTC()
	return report, nil
}

func encodeOrderJSON(order domain.Order) ([]byte, []byte, error) {
	payments := order.Payments
	if payments == nil {
		payments = []domain.Payment{}
	}
	encodedPayments, err := json.Marshal(payments)
	if err != nil {
		return nil, nil, err
	}
	encodedHistory, err := json.Marshal(order.PaymentHistory)
	if err != nil {
		return nil, nil, err
	}
	return encodedPayments, encodedHistory, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// nullJSON encodes a pointer field, keeping nil as SQL NULL.
func nullJSON[T any](val *T) (any, error) {
	if val == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

func nullDecimal(val *decimal.Decimal) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}

func fromNullTime(val sql.NullTime) *time.Time {
	if !val.Valid {
		return nil
	}
	at := val.Time.UTC()
	return &at
}
