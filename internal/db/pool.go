package club

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	model "github.com/glkeru/vipclub/internal/models"
)

// Пул соединений создается один раз в main и передается в репозитории
func NewPool(ctx context.Context) (*pgxpool.Pool, error) {
	// config
	purl := os.Getenv("CLUB_DB")
	if purl == "" {
		return nil, fmt.Errorf("env CLUB_DB is not set")
	}
	port := os.Getenv("CLUB_DB_PORT")
	if port == "" {
		return nil, fmt.Errorf("env CLUB_DB_PORT is not set")
	}
	user := os.Getenv("CLUB_DB_USER")
	if user == "" {
		return nil, fmt.Errorf("env CLUB_DB_USER is not set")
	}
	password := os.Getenv("CLUB_DB_PASSWORD")
	if password == "" {
		return nil, fmt.Errorf("env CLUB_DB_PASSWORD is not set")
	}
	database := os.Getenv("CLUB_DB_BASE")
	if database == "" {
		return nil, fmt.Errorf("env CLUB_DB_BASE is not set")
	}
	dsn := "postgres://" + user + ":" + password + "@" + purl + ":" + port + "/" + database

	return pgxpool.New(ctx, dsn)
}

// кол-во попыток при конфликте блокировок
const lockAttempts = 3

// Конфликты сериализации и deadlock повторяются, остальное - нет
func retryable(err error) bool {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		return pgerr.Code == "40001" || pgerr.Code == "40P01"
	}
	return false
}

// Повтор транзакции с ограничением попыток
func withRetry[T any](ctx context.Context, op func(context.Context) (T, error)) (result T, err error) {
	for attempt := 0; attempt < lockAttempts; attempt++ {
		result, err = op(ctx)
		if err == nil || !retryable(err) {
			return result, err
		}
	}
	return result, fmt.Errorf("%v: %w", err, model.ErrConcurrentModification)
}
