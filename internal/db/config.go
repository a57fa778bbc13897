package club

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	model "github.com/glkeru/vipclub/internal/models"
)

type ConfigDB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewConfigDB(pool *pgxpool.Pool, logger *zap.Logger) *ConfigDB {
	return &ConfigDB{pool, logger}
}

// Настройки читаются заново при каждой операции движков - кэша нет
func (c *ConfigDB) Get(ctx context.Context) (cfg model.ClubConfig, err error) {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return cfg, err
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT points_per_dollar, first_prize, second_prize, third_prize,
		first_prize_object, second_prize_object, third_prize_object,
		bronze_threshold, silver_threshold, gold_threshold, platinum_threshold,
		bronze_cashback, silver_cashback, gold_cashback,
		monthly_reset_day, vip_early_access_hours, vip_support_enabled, updated_at
		FROM club_config WHERE id = 1`)

	var first, second, third string
	err = row.Scan(&cfg.PointsPerDollar, &cfg.FirstPrize, &cfg.SecondPrize, &cfg.ThirdPrize,
		&first, &second, &third,
		&cfg.BronzeThreshold, &cfg.SilverThreshold, &cfg.GoldThreshold, &cfg.PlatinumThreshold,
		&cfg.BronzeCashback, &cfg.SilverCashback, &cfg.GoldCashback,
		&cfg.MonthlyResetDay, &cfg.EarlyAccessHours, &cfg.SupportEnabled, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cfg, fmt.Errorf("club config %w", model.ErrNotFound)
		}
		return cfg, err
	}

	cfg.FirstPrizeObject, err = model.DecodePrize(first)
	if err != nil {
		return cfg, err
	}
	cfg.SecondPrizeObject, err = model.DecodePrize(second)
	if err != nil {
		return cfg, err
	}
	cfg.ThirdPrizeObject, err = model.DecodePrize(third)
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Перезапись настроек админом
func (c *ConfigDB) Update(ctx context.Context, cfg model.ClubConfig) error {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	first, err := cfg.FirstPrizeObject.Encode()
	if err != nil {
		return err
	}
	second, err := cfg.SecondPrizeObject.Encode()
	if err != nil {
		return err
	}
	third, err := cfg.ThirdPrizeObject.Encode()
	if err != nil {
		return err
	}

	sql, args, err := sq.Update("club_config").
		Set("points_per_dollar", cfg.PointsPerDollar).
		Set("first_prize", cfg.FirstPrize).
		Set("second_prize", cfg.SecondPrize).
		Set("third_prize", cfg.ThirdPrize).
		Set("first_prize_object", first).
		Set("second_prize_object", second).
		Set("third_prize_object", third).
		Set("bronze_threshold", cfg.BronzeThreshold).
		Set("silver_threshold", cfg.SilverThreshold).
		Set("gold_threshold", cfg.GoldThreshold).
		Set("platinum_threshold", cfg.PlatinumThreshold).
		Set("bronze_cashback", cfg.BronzeCashback).
		Set("silver_cashback", cfg.SilverCashback).
		Set("gold_cashback", cfg.GoldCashback).
		Set("monthly_reset_day", cfg.MonthlyResetDay).
		Set("vip_early_access_hours", cfg.EarlyAccessHours).
		Set("vip_support_enabled", cfg.SupportEnabled).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": 1}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx, sql, args...)
	if err != nil {
		c.logger.Error("SQL error", zap.Error(err), zap.String("query", sql), zap.Any("args", args))
		return err
	}
	return nil
}
