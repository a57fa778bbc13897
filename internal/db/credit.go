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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	model "github.com/glkeru/vipclub/internal/models"
)

type CreditDB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewCreditDB(pool *pgxpool.Pool, logger *zap.Logger) *CreditDB {
	return &CreditDB{pool, logger}
}

const creditColumnsSQL = `SELECT id, user_id, credit_limit, current_balance, used_amount, is_active,
	assigned_by, assigned_at, last_reset, payment_due_policy, payment_due_date, notes
	FROM vip_credits WHERE user_id = $1`

func scanCredit(row pgx.Row, user string) (acc model.CreditAccount, err error) {
	var pgid pgtype.UUID
	var lastReset, dueDate pgtype.Timestamptz
	var policy, notes, assignedBy pgtype.Text

	err = row.Scan(&pgid, &acc.User, &acc.Limit, &acc.Balance, &acc.Used, &acc.Active,
		&assignedBy, &acc.AssignedAt, &lastReset, &policy, &dueDate, &notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return acc, fmt.Errorf("credit account %s %w", user, model.ErrNotFound)
		}
		return acc, err
	}
	acc.UUID, _ = uuid.FromBytes(pgid.Bytes[:])
	acc.AssignedBy = assignedBy.String
	acc.DuePolicy = policy.String
	acc.Notes = notes.String
	if lastReset.Status == pgtype.Present {
		acc.LastReset = lastReset.Time
	}
	if dueDate.Status == pgtype.Present {
		t := dueDate.Time
		acc.DueDate = &t
	}
	return acc, nil
}

// Чтение строки счета под блокировкой
func lockCredit(ctx context.Context, tx pgx.Tx, user string) (model.CreditAccount, error) {
	return scanCredit(tx.QueryRow(ctx, creditColumnsSQL+" FOR UPDATE", user), user)
}

// Сохранение изменяемых полей счета
func saveCredit(ctx context.Context, tx pgx.Tx, acc model.CreditAccount) error {
	upd := sq.Update("vip_credits").
		Set("credit_limit", acc.Limit).
		Set("current_balance", acc.Balance).
		Set("used_amount", acc.Used).
		Set("is_active", acc.Active).
		Set("payment_due_policy", acc.DuePolicy).
		Set("payment_due_date", acc.DueDate).
		Set("notes", acc.Notes).
		Where(sq.Eq{"user_id": acc.User}).
		PlaceholderFormat(sq.Dollar)
	if !acc.LastReset.IsZero() {
		upd = upd.Set("last_reset", acc.LastReset)
	}
	sql, args, err := upd.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, sql, args...)
	return err
}

// Запись в журнал транзакций - только вставка, обновления и удаления отсутствуют
func appendTnx(ctx context.Context, tx pgx.Tx, tnx model.CreditTransaction) error {
	var orderId any
	if tnx.OrderID != "" {
		orderId = tnx.OrderID
	}
	sql, args, err := sq.Insert("vip_transactions").
		Columns("id", "user_id", "order_id", "amount", "type", "description", "created_at").
		Values(uuid.New(), tnx.User, orderId, tnx.Amount, tnx.TypeTnx, tnx.Description, time.Now()).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, sql, args...)
	return err
}

// Назначение VIP кредита: создание счета либо обновление лимита существующего
func (c *CreditDB) Assign(ctx context.Context, user string, limit decimal.Decimal, assignedBy string, notes string) (model.CreditAccount, error) {
	return withRetry(ctx, func(ctx context.Context) (acc model.CreditAccount, err error) {
		conn, err := c.pool.Acquire(ctx)
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

		acc, err = lockCredit(ctx, tx, user)
		if errors.Is(err, model.ErrNotFound) {
			// новый счет: баланс равен лимиту
			acc = model.CreditAccount{
				UUID:       uuid.New(),
				User:       user,
				Limit:      limit,
				Balance:    limit,
				Used:       decimal.Zero,
				Active:     true,
				AssignedBy: assignedBy,
				AssignedAt: time.Now(),
				Notes:      notes,
			}
			sql, args, serr := sq.Insert("vip_credits").
				Columns("id", "user_id", "credit_limit", "current_balance", "used_amount", "is_active", "assigned_by", "assigned_at", "notes").
				Values(acc.UUID, acc.User, acc.Limit, acc.Balance, acc.Used, acc.Active, acc.AssignedBy, acc.AssignedAt, acc.Notes).
				PlaceholderFormat(sq.Dollar).
				ToSql()
			if serr != nil {
				err = serr
				return acc, err
			}
			_, err = tx.Exec(ctx, sql, args...)
			if err != nil {
				c.logger.Error("SQL error", zap.Error(err), zap.String("query", sql), zap.Any("args", args))
				return acc, err
			}
			err = tx.Commit(ctx)
			return acc, err
		}
		if err != nil {
			return acc, err
		}

		// повторное назначение: обновить лимит и заметки, реактивировать
		err = acc.SetLimit(limit)
		if err != nil {
			return acc, err
		}
		acc.Active = true
		acc.AssignedBy = assignedBy
		acc.Notes = notes
		err = saveCredit(ctx, tx, acc)
		if err != nil {
			return acc, err
		}
		err = tx.Commit(ctx)
		return acc, err
	})
}

// Покупка в кредит: изменение счета и запись в журнал в одной транзакции
func (c *CreditDB) Charge(ctx context.Context, user string, amount decimal.Decimal, orderId string) (model.CreditAccount, error) {
	return withRetry(ctx, func(ctx context.Context) (acc model.CreditAccount, err error) {
		conn, err := c.pool.Acquire(ctx)
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

		acc, err = lockCredit(ctx, tx, user)
		if err != nil {
			return acc, err
		}
		err = acc.Charge(amount)
		if err != nil {
			return acc, err
		}
		err = saveCredit(ctx, tx, acc)
		if err != nil {
			return acc, err
		}
		err = appendTnx(ctx, tx, model.CreditTransaction{
			User:        user,
			OrderID:     orderId,
			Amount:      amount,
			TypeTnx:     model.TnxPurchase,
			Description: "order " + orderId,
		})
		if err != nil {
			return acc, err
		}
		err = tx.Commit(ctx)
		return acc, err
	})
}

// Восстановление лимита. Повторный вызов в том же месяце ничего не меняет и не логируется
func (c *CreditDB) Reset(ctx context.Context, user string) (model.CreditAccount, error) {
	return withRetry(ctx, func(ctx context.Context) (acc model.CreditAccount, err error) {
		conn, err := c.pool.Acquire(ctx)
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

		acc, err = lockCredit(ctx, tx, user)
		if err != nil {
			return acc, err
		}
		if !acc.ResetCycle(time.Now()) {
			err = tx.Rollback(ctx)
			return acc, err
		}
		err = saveCredit(ctx, tx, acc)
		if err != nil {
			return acc, err
		}
		err = appendTnx(ctx, tx, model.CreditTransaction{
			User:        user,
			Amount:      acc.Limit,
			TypeTnx:     model.TnxReset,
			Description: "monthly credit reset",
		})
		if err != nil {
			return acc, err
		}
		err = tx.Commit(ctx)
		return acc, err
	})
}

// Ручная корректировка израсходованной суммы
func (c *CreditDB) Adjust(ctx context.Context, user string, delta decimal.Decimal, description string) (model.CreditAccount, error) {
	return withRetry(ctx, func(ctx context.Context) (acc model.CreditAccount, err error) {
		conn, err := c.pool.Acquire(ctx)
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

		acc, err = lockCredit(ctx, tx, user)
		if err != nil {
			return acc, err
		}
		err = acc.Adjust(delta)
		if err != nil {
			return acc, err
		}
		err = saveCredit(ctx, tx, acc)
		if err != nil {
			return acc, err
		}
		err = appendTnx(ctx, tx, model.CreditTransaction{
			User:        user,
			Amount:      delta,
			TypeTnx:     model.TnxAdjustment,
			Description: description,
		})
		if err != nil {
			return acc, err
		}
		err = tx.Commit(ctx)
		return acc, err
	})
}

// Сохранение политики и рассчитанной даты платежа
func (c *CreditDB) SetDueDate(ctx context.Context, user string, policy string, date time.Time) (model.CreditAccount, error) {
	return withRetry(ctx, func(ctx context.Context) (acc model.CreditAccount, err error) {
		conn, err := c.pool.Acquire(ctx)
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

		acc, err = lockCredit(ctx, tx, user)
		if err != nil {
			return acc, err
		}
		acc.DuePolicy = policy
		acc.DueDate = &date
		err = saveCredit(ctx, tx, acc)
		if err != nil {
			return acc, err
		}
		err = tx.Commit(ctx)
		return acc, err
	})
}

// Деактивация: флаг снимается, баланс не трогаем
func (c *CreditDB) Deactivate(ctx context.Context, user string) (model.CreditAccount, error) {
	return withRetry(ctx, func(ctx context.Context) (acc model.CreditAccount, err error) {
		conn, err := c.pool.Acquire(ctx)
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

		acc, err = lockCredit(ctx, tx, user)
		if err != nil {
			return acc, err
		}
		acc.Active = false
		err = saveCredit(ctx, tx, acc)
		if err != nil {
			return acc, err
		}
		err = tx.Commit(ctx)
		return acc, err
	})
}

// Чтение счета без блокировки
func (c *CreditDB) Get(ctx context.Context, user string) (acc model.CreditAccount, err error) {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return acc, err
	}
	defer conn.Release()

	return scanCredit(conn.QueryRow(ctx, creditColumnsSQL, user), user)
}

// Список VIP счетов для админки
func (c *CreditDB) List(ctx context.Context) (accs []model.CreditAccount, err error) {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	sql, args, err := sq.Select("id", "user_id", "credit_limit", "current_balance", "used_amount", "is_active",
		"assigned_by", "assigned_at", "last_reset", "payment_due_policy", "payment_due_date", "notes").
		From("vip_credits").
		OrderBy("assigned_at DESC").
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
		acc, serr := scanCredit(rows, "")
		if serr != nil {
			return nil, serr
		}
		accs = append(accs, acc)
	}
	return accs, rows.Err()
}

// Активные счета, не сброшенные в текущем цикле
func (c *CreditDB) ListResetDue(ctx context.Context, cycleStart time.Time) (users []string, err error) {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	sql, args, err := sq.Select("user_id").
		From("vip_credits").
		Where(sq.Eq{"is_active": true}).
		Where(sq.Or{sq.Eq{"last_reset": nil}, sq.Lt{"last_reset": cycleStart}}).
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
		var user string
		err = rows.Scan(&user)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Журнал транзакций счета, новые сверху
func (c *CreditDB) Transactions(ctx context.Context, user string) (tnxs []model.CreditTransaction, err error) {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	sql, args, err := sq.Select("id", "user_id", "order_id", "amount", "type", "description", "created_at").
		From("vip_transactions").
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
		var tnx model.CreditTransaction
		var pgid pgtype.UUID
		var orderId, descr pgtype.Text
		err = rows.Scan(&pgid, &tnx.User, &orderId, &tnx.Amount, &tnx.TypeTnx, &descr, &tnx.CreatedAt)
		if err != nil {
			return nil, err
		}
		tnx.UUID, _ = uuid.FromBytes(pgid.Bytes[:])
		tnx.OrderID = orderId.String
		tnx.Description = descr.String
		tnxs = append(tnxs, tnx)
	}
	return tnxs, rows.Err()
}
