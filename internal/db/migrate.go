package club

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Версионированные миграции, применяются один раз при деплое (cmd/migrate).
// Рантайм никогда не меняет схему
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS vip_credits (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		credit_limit NUMERIC(12,2) NOT NULL CHECK (credit_limit >= 0),
		current_balance NUMERIC(12,2) NOT NULL CHECK (current_balance >= 0),
		used_amount NUMERIC(12,2) NOT NULL CHECK (used_amount >= 0),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		assigned_by TEXT,
		assigned_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_reset TIMESTAMPTZ,
		payment_due_policy TEXT,
		payment_due_date TIMESTAMPTZ,
		notes TEXT,
		CHECK (current_balance + used_amount = credit_limit)
	)`,
	`CREATE TABLE IF NOT EXISTS vip_transactions (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		order_id TEXT,
		amount NUMERIC(12,2) NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('PURCHASE', 'RESET', 'ADJUSTMENT')),
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS vip_transactions_user_idx ON vip_transactions (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS user_points (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		total_points BIGINT NOT NULL DEFAULT 0,
		monthly_points BIGINT NOT NULL DEFAULT 0,
		current_month INT NOT NULL,
		current_year INT NOT NULL,
		level TEXT NOT NULL CHECK (level IN ('BRONZE', 'SILVER', 'GOLD', 'PLATINUM')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS user_points_monthly_idx ON user_points (monthly_points DESC, updated_at ASC)`,
	`CREATE TABLE IF NOT EXISTS points_history (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		order_id TEXT,
		points_earned BIGINT NOT NULL,
		reason TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS monthly_winners (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		month INT NOT NULL,
		year INT NOT NULL,
		position INT NOT NULL CHECK (position BETWEEN 1 AND 3),
		points BIGINT NOT NULL,
		prize_amount NUMERIC(12,2) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (month, year, position)
	)`,
	`CREATE TABLE IF NOT EXISTS club_config (
		id INT PRIMARY KEY,
		points_per_dollar NUMERIC(8,2) NOT NULL DEFAULT 1,
		first_prize NUMERIC(12,2) NOT NULL DEFAULT 0,
		second_prize NUMERIC(12,2) NOT NULL DEFAULT 0,
		third_prize NUMERIC(12,2) NOT NULL DEFAULT 0,
		first_prize_object TEXT NOT NULL DEFAULT '',
		second_prize_object TEXT NOT NULL DEFAULT '',
		third_prize_object TEXT NOT NULL DEFAULT '',
		bronze_threshold BIGINT NOT NULL DEFAULT 0,
		silver_threshold BIGINT NOT NULL DEFAULT 100,
		gold_threshold BIGINT NOT NULL DEFAULT 500,
		platinum_threshold BIGINT NOT NULL DEFAULT 1000,
		bronze_cashback NUMERIC(5,2) NOT NULL DEFAULT 0,
		silver_cashback NUMERIC(5,2) NOT NULL DEFAULT 0,
		gold_cashback NUMERIC(5,2) NOT NULL DEFAULT 0,
		monthly_reset_day INT NOT NULL DEFAULT 1,
		vip_early_access_hours INT NOT NULL DEFAULT 0,
		vip_support_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`INSERT INTO club_config (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
}

// Применение миграций начиная с последней примененной версии
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return err
	}

	var current int
	row := conn.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	err = row.Scan(&current)
	if err != nil {
		return err
	}

	for i := current; i < len(migrations); i++ {
		_, err = conn.Exec(ctx, migrations[i])
		if err != nil {
			logger.Error("migration failed", zap.Int("version", i+1), zap.Error(err))
			return err
		}
		_, err = conn.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", i+1)
		if err != nil {
			return err
		}
		logger.Info("migration applied", zap.Int("version", i+1))
	}
	return nil
}
