package club

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	model "github.com/glkeru/vipclub/internal/models"
)

type WinnersDB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewWinnersDB(pool *pgxpool.Pool, logger *zap.Logger) *WinnersDB {
	return &WinnersDB{pool, logger}
}

// Проверка, что цикл за месяц уже закрыт
func (w *WinnersDB) Exists(ctx context.Context, month int, year int) (bool, error) {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Release()

	var count int
	row := conn.QueryRow(ctx, "SELECT COUNT(*) FROM monthly_winners WHERE month = $1 AND year = $2", month, year)
	err = row.Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Запись победителей цикла, все в одной транзакции
func (w *WinnersDB) Create(ctx context.Context, winners []model.MonthlyWinner) (err error) {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	for _, winner := range winners {
		sql, args, serr := sq.Insert("monthly_winners").
			Columns("id", "user_id", "month", "year", "position", "points", "prize_amount", "created_at").
			Values(uuid.New(), winner.User, winner.Month, winner.Year, winner.Position, winner.Points, winner.PrizeAmount, time.Now()).
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if serr != nil {
			err = serr
			return err
		}
		_, err = tx.Exec(ctx, sql, args...)
		if err != nil {
			w.logger.Error("SQL error", zap.Error(err), zap.String("query", sql), zap.Any("args", args))
			return err
		}
	}
	return tx.Commit(ctx)
}

// Победители за месяц по местам
func (w *WinnersDB) List(ctx context.Context, month int, year int) (winners []model.MonthlyWinner, err error) {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	sql, args, err := sq.Select("id", "user_id", "month", "year", "position", "points", "prize_amount", "created_at").
		From("monthly_winners").
		Where(sq.Eq{"month": month, "year": year}).
		OrderBy("position ASC").
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
		var winner model.MonthlyWinner
		var pgid pgtype.UUID
		err = rows.Scan(&pgid, &winner.User, &winner.Month, &winner.Year, &winner.Position,
			&winner.Points, &winner.PrizeAmount, &winner.CreatedAt)
		if err != nil {
			return nil, err
		}
		winner.UUID, _ = uuid.FromBytes(pgid.Bytes[:])
		winners = append(winners, winner)
	}
	return winners, rows.Err()
}
