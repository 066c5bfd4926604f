package postgres

import (
	"context"
	"fmt"
)

// schemaStatements are idempotent. The partial index on shifts and the
// unique keys on day_closes / day_sales are what make concurrent opens and
// day-closes fail atomically instead of racing past a read.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS app_users (
		username   TEXT PRIMARY KEY,
		password   TEXT NOT NULL,
		role       TEXT NOT NULL DEFAULT 'cashier',
		name       TEXT NOT NULL DEFAULT '',
		email      TEXT NOT NULL DEFAULT '',
		phone      TEXT NOT NULL DEFAULT '',
		active     BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id              TEXT PRIMARY KEY,
		order_number    TEXT NOT NULL DEFAULT '',
		branch_id       TEXT NOT NULL,
		status          TEXT NOT NULL,
		canceled        BOOLEAN NOT NULL DEFAULT false,
		is_deleted      BOOLEAN NOT NULL DEFAULT false,
		sales_type      TEXT NOT NULL DEFAULT '',
		order_type      TEXT NOT NULL DEFAULT '',
		total           NUMERIC(14,2) NOT NULL DEFAULT 0,
		payable_amount  NUMERIC(14,2) NOT NULL DEFAULT 0,
		total_discount  NUMERIC(14,2) NOT NULL DEFAULT 0,
		vat             NUMERIC(14,2) NOT NULL DEFAULT 0,
		payments        JSONB NOT NULL DEFAULT '[]',
		cumulative_paid NUMERIC(14,2),
		payment_history JSONB NOT NULL DEFAULT '{}',
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS orders_branch_created_idx ON orders (branch_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS orders_branch_updated_idx ON orders (branch_id, updated_at)`,
	`CREATE TABLE IF NOT EXISTS shifts (
		id            TEXT PRIMARY KEY,
		shift_number  INTEGER NOT NULL,
		branch_id     TEXT NOT NULL,
		start_date    TEXT NOT NULL,
		start_time    TIMESTAMPTZ NOT NULL,
		end_date      TEXT NOT NULL DEFAULT '',
		end_time      TIMESTAMPTZ,
		scheduled_end BOOLEAN NOT NULL DEFAULT false,
		logout_time   TIMESTAMPTZ,
		status        TEXT NOT NULL,
		created_by    TEXT NOT NULL DEFAULT '',
		closed_by     TEXT NOT NULL DEFAULT '',
		note          TEXT NOT NULL DEFAULT '',
		denominations JSONB,
		sales         JSONB,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL,
		UNIQUE (branch_id, start_date, shift_number)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS shifts_one_open_per_branch ON shifts (branch_id) WHERE status = 'open'`,
	`CREATE TABLE IF NOT EXISTS day_closes (
		id            TEXT PRIMARY KEY,
		branch_id     TEXT NOT NULL,
		start_date    TEXT NOT NULL,
		start_time    TIMESTAMPTZ NOT NULL,
		end_date      TEXT NOT NULL,
		end_time      TIMESTAMPTZ NOT NULL,
		status        TEXT NOT NULL DEFAULT 'day-close',
		created_by    TEXT NOT NULL DEFAULT '',
		closed_by     TEXT NOT NULL DEFAULT '',
		note          TEXT NOT NULL DEFAULT '',
		denominations JSONB NOT NULL,
		sales         JSONB NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL,
		UNIQUE (branch_id, start_date)
	)`,
	`CREATE TABLE IF NOT EXISTS day_sales (
		id               TEXT PRIMARY KEY,
		date             TEXT NOT NULL,
		branch_id        TEXT NOT NULL,
		day_close_id     TEXT NOT NULL DEFAULT '',
		day_sales        JSONB NOT NULL,
		shift_wise_sales JSONB NOT NULL,
		shifts           JSONB NOT NULL DEFAULT '[]',
		total_shifts     INTEGER NOT NULL DEFAULT 0,
		day_close_time   TIMESTAMPTZ NOT NULL,
		closed_by        TEXT NOT NULL DEFAULT '',
		note             TEXT NOT NULL DEFAULT '',
		denomination     JSONB NOT NULL,
		cash_variance    NUMERIC(14,2) NOT NULL DEFAULT 0,
		created_at       TIMESTAMPTZ NOT NULL,
		UNIQUE (date, branch_id)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id             TEXT PRIMARY KEY,
		branch_id      TEXT NOT NULL,
		actor_username TEXT NOT NULL,
		actor_role     TEXT NOT NULL,
		action         TEXT NOT NULL,
		entity_type    TEXT NOT NULL,
		entity_id      TEXT NOT NULL,
		detail         TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS audit_logs_branch_created_idx ON audit_logs (branch_id, created_at)`,
}

func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
