package club

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	model "github.com/glkeru/vipclub/internal/models"
)

type PointsDB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPointsDB(pool *pgxpool.Pool, logger *zap.Logger) *PointsDB {
	return &PointsDB{pool, logger}
}

const pointsColumnsSQL = `SELECT id, user_id, total_points, monthly_points, current_month, current_year,
	level, created_at, updated_at FROM user_points WHERE user_id = $1`

func scanPoints(row pgx.Row, user string) (acc model.PointsAccount, err error) {
	var pgid pgtype.UUID
	err = row.Scan(&pgid, &acc.User, &acc.Total, &acc.Monthly, &acc.Month, &acc.Year,
		&acc.Level, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return acc, fmt.Errorf("points account %s %w", user, model.ErrNotFound)
		}
		return acc, err
	}
	acc.UUID, _ = uuid.FromBytes(pgid.Bytes[:])
	return acc, nil
}

// Чтение счета баллов под блокировкой
func lockPoints(ctx context.Context, tx pgx.Tx, user string) (model.PointsAccount, error) {
	return scanPoints(tx.QueryRow(ctx, pointsColumnsSQL+" FOR UPDATE", user), user)
}

func savePoints(ctx context.Context, tx pgx.Tx, acc model.PointsAccount) error {
	sql, args, err := sq.Update("user_points").
		Set("total_points", acc.Total).
		Set("monthly_points", acc.Monthly).
		Set("current_month", acc.Month).
		Set("current_year", acc.Year).
		Set("level", acc.Level).
		Set("updated_at", acc.UpdatedAt).
		Where(sq.Eq{"user_id": acc.User}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, sql, args...)
	return err
}

// Создание счета при первом начислении
func insertPoints(ctx context.Context, tx pgx.Tx, acc model.PointsAccount) error {
	sql, args, err := sq.Insert("user_points").
		Columns("id", "user_id", "total_points", "monthly_points", "current_month", "current_year", "level", "created_at", "updated_at").
		Values(acc.UUID, acc.User, acc.Total, acc.Monthly, acc.Month, acc.Year, acc.Level, acc.CreatedAt, acc.UpdatedAt).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, sql, args...)
	return err
}

// Начисление баллов по заказу: счет и запись истории в одной транзакции
func (p *PointsDB) Earn(ctx context.Context, user string, points int64, orderId string, reason string, cfg model.ClubConfig) (model.PointsAccount, error) {
	return withRetry(ctx, func(ctx context.Context) (acc model.PointsAccount, err error) {
		conn, err := p.pool.Acquire(ctx)
		if err != nil {
			return acc, err
		}
		defer conn.Release()

		tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return acc, err
		}
		defer func() {
			if err != nil {
				tx.Rollback(ctx)
			}
		}()

		now := time.Now()
		acc, err = lockPoints(ctx, tx, user)
		switch {
		case errors.Is(err, model.ErrNotFound):
			acc = model.PointsAccount{
				UUID:      uuid.New(),
				User:      user,
				Total:     points,
				Monthly:   points,
				Month:     int(now.Month()),
				Year:      now.Year(),
				Level:     cfg.LevelFor(points),
				CreatedAt: now,
				UpdatedAt: now,
			}
			err = insertPoints(ctx, tx, acc)
			if err != nil {
				return acc, err
			}
		case err != nil:
			return acc, err
		default:
			acc.Total += points
			acc.Monthly += points
			acc.Level = cfg.LevelFor(acc.Monthly)
			acc.UpdatedAt = now
			err = savePoints(ctx, tx, acc)
			if err != nil {
				return acc, err
			}
		}

		var order any
		if orderId != "" {
			order = orderId
		}
		sql, args, serr := sq.Insert("points_history").
			Columns("id", "user_id", "order_id", "points_earned", "reason", "created_at").
			Values(uuid.New(), user, order, points, reason, now).
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if serr != nil {
			err = serr
			return acc, err
		}
		_, err = tx.Exec(ctx, sql, args...)
		if err != nil {
			p.logger.Error("SQL error", zap.Error(err), zap.String("query", sql), zap.Any("args", args))
			return acc, err
		}
		err = tx.Commit(ctx)
		return acc, err
	})
}

// Переход на новый месяц: месячные баллы в ноль, уровень пересчитывается.
// Если месяц на счете уже текущий - счет не меняется
func (p *PointsDB) Rollover(ctx context.Context, user string, now time.Time, cfg model.ClubConfig) (model.PointsAccount, error) {
	return withRetry(ctx, func(ctx context.Context) (acc model.PointsAccount, err error) {
		conn, err := p.pool.Acquire(ctx)
		if err != nil {
			return acc, err
		}
		defer conn.Release()

		tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return acc, err
		}
		defer func() {
			if err != nil {
				tx.Rollback(ctx)
			}
		}()

		acc, err = lockPoints(ctx, tx, user)
		if err != nil {
			return acc, err
		}
		if acc.Month == int(now.Month()) && acc.Year == now.Year() {
			err = tx.Rollback(ctx)
			return acc, err
		}
		acc.Monthly = 0
		acc.Month = int(now.Month())
		acc.Year = now.Year()
		acc.Level = cfg.LevelFor(0)
		acc.UpdatedAt = now
		err = savePoints(ctx, tx, acc)
		if err != nil {
			return acc, err
		}
		err = tx.Commit(ctx)
		return acc, err
	})
}

func (p *PointsDB) Get(ctx context.Context, user string) (acc model.PointsAccount, err error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return acc, err
	}
	defer conn.Release()

	return scanPoints(conn.QueryRow(ctx, pointsColumnsSQL, user), user)
}

// Рейтинг месяца: по убыванию баллов, при равенстве побеждает достигший раньше
func (p *PointsDB) Top(ctx context.Context, limit int) (accs []model.PointsAccount, err error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	sql, args, err := sq.Select("id", "user_id", "total_points", "monthly_points", "current_month", "current_year",
		"level", "created_at", "updated_at").
		From("user_points").
		OrderBy("monthly_points DESC", "updated_at ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		acc, serr := scanPoints(rows, "")
		if serr != nil {
			return nil, serr
		}
		accs = append(accs, acc)
	}
	return accs, rows.Err()
}

// Все пользователи со счетами баллов
func (p *PointsDB) Users(ctx context.Context) (users []string, err error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, "SELECT user_id FROM user_points")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var user string
		err = rows.Scan(&user)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// История начислений, новые сверху
func (p *PointsDB) History(ctx context.Context, user string) (entries []model.PointsHistoryEntry, err error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	sql, args, err := sq.Select("id", "user_id", "order_id", "points_earned", "reason", "created_at").
		From("points_history").
		Where(sq.Eq{"user_id": user}).
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e model.PointsHistoryEntry
		var pgid pgtype.UUID
		var orderId pgtype.Text
		err = rows.Scan(&pgid, &e.User, &orderId, &e.Points, &e.Reason, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		e.UUID, _ = uuid.FromBytes(pgid.Bytes[:])
		e.OrderID = orderId.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
