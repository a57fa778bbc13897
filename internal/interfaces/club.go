package club

import (
	"context"
	"time"

	model "github.com/glkeru/vipclub/internal/models"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -destination=./../services/mock_config_test.go -package=club . ConfigStorage

// Хранилище кредитных счетов и журнала транзакций.
// Все мутации - короткие транзакции с блокировкой строки счета
type CreditStorage interface {
	Assign(ctx context.Context, user string, limit decimal.Decimal, assignedBy string, notes string) (model.CreditAccount, error)
	Charge(ctx context.Context, user string, amount decimal.Decimal, orderId string) (model.CreditAccount, error)
	Reset(ctx context.Context, user string) (model.CreditAccount, error)
	Adjust(ctx context.Context, user string, delta decimal.Decimal, description string) (model.CreditAccount, error)
	SetDueDate(ctx context.Context, user string, policy string, date time.Time) (model.CreditAccount, error)
	Deactivate(ctx context.Context, user string) (model.CreditAccount, error)
	Get(ctx context.Context, user string) (model.CreditAccount, error)
	List(ctx context.Context) ([]model.CreditAccount, error)
	ListResetDue(ctx context.Context, cycleStart time.Time) (users []string, err error)
	Transactions(ctx context.Context, user string) ([]model.CreditTransaction, error)
}

// Хранилище счетов баллов и истории начислений
type PointsStorage interface {
	Earn(ctx context.Context, user string, points int64, orderId string, reason string, cfg model.ClubConfig) (model.PointsAccount, error)
	Rollover(ctx context.Context, user string, now time.Time, cfg model.ClubConfig) (model.PointsAccount, error)
	Get(ctx context.Context, user string) (model.PointsAccount, error)
	Top(ctx context.Context, limit int) ([]model.PointsAccount, error)
	Users(ctx context.Context) ([]string, error)
	History(ctx context.Context, user string) ([]model.PointsHistoryEntry, error)
}

// Настройки клуба, читаются заново при каждой операции
type ConfigStorage interface {
	Get(ctx context.Context) (model.ClubConfig, error)
	Update(ctx context.Context, cfg model.ClubConfig) error
}

// Победители месяца
type WinnerStorage interface {
	Exists(ctx context.Context, month int, year int) (bool, error)
	Create(ctx context.Context, winners []model.MonthlyWinner) error
	List(ctx context.Context, month int, year int) ([]model.MonthlyWinner, error)
}

// Кэш рейтинга для read-only отображения.
// Балансы счетов не кэшируются никогда
type LeaderboardCache interface {
	GetLeaderboard(ctx context.Context, month int, year int) ([]model.PointsAccount, error)
	SetLeaderboard(ctx context.Context, month int, year int, accounts []model.PointsAccount) error
	InvalidateLeaderboard(ctx context.Context, month int, year int) error
}
