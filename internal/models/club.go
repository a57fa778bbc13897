package club

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Уровни лояльности
const (
	LevelBronze   = "BRONZE"
	LevelSilver   = "SILVER"
	LevelGold     = "GOLD"
	LevelPlatinum = "PLATINUM"
)

// Типы транзакций кредитного счета
const (
	TnxPurchase   = "PURCHASE"
	TnxReset      = "RESET"
	TnxAdjustment = "ADJUSTMENT"
)

// VIP кредитный счет
// Инвариант: Balance + Used == Limit, Balance >= 0, Used >= 0
type CreditAccount struct {
	UUID       uuid.UUID
	User       string // ID пользователя
	Limit      decimal.Decimal
	Balance    decimal.Decimal // доступный остаток
	Used       decimal.Decimal // израсходовано в текущем цикле
	Active     bool
	AssignedBy string
	AssignedAt time.Time
	LastReset  time.Time  // нулевое значение - сброса еще не было
	DuePolicy  string     // токен политики платежа: "ultimo" / "habil" / "N"
	DueDate    *time.Time // рассчитанная дата платежа
	Notes      string
}

// Транзакции кредитного счета
type CreditTransaction struct {
	UUID        uuid.UUID
	User        string
	OrderID     string // пусто для RESET/ADJUSTMENT
	Amount      decimal.Decimal
	TypeTnx     string
	Description string
	CreatedAt   time.Time
}

// Счет баллов
type PointsAccount struct {
	UUID      uuid.UUID
	User      string
	Total     int64 // за все время, не убывает
	Monthly   int64 // сбрасывается каждый цикл
	Month     int
	Year      int
	Level     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// История начислений
type PointsHistoryEntry struct {
	UUID      uuid.UUID
	User      string
	OrderID   string
	Points    int64
	Reason    string
	CreatedAt time.Time
}

// Победитель месяца
type MonthlyWinner struct {
	UUID        uuid.UUID
	User        string
	Month       int
	Year        int
	Position    int // 1..3
	Points      int64
	PrizeAmount decimal.Decimal
	CreatedAt   time.Time
}

// Настройки клуба - единственная запись id=1
type ClubConfig struct {
	PointsPerDollar   decimal.Decimal
	FirstPrize        decimal.Decimal
	SecondPrize       decimal.Decimal
	ThirdPrize        decimal.Decimal
	FirstPrizeObject  Prize
	SecondPrizeObject Prize
	ThirdPrizeObject  Prize
	BronzeThreshold   int64
	SilverThreshold   int64
	GoldThreshold     int64
	PlatinumThreshold int64
	BronzeCashback    decimal.Decimal
	SilverCashback    decimal.Decimal
	GoldCashback      decimal.Decimal
	MonthlyResetDay   int
	EarlyAccessHours  int
	SupportEnabled    bool
	UpdatedAt         time.Time
}

// Приз за место в рейтинге конфигом ClubConfig
func (c ClubConfig) PrizeForPosition(position int) decimal.Decimal {
	switch position {
	case 1:
		return c.FirstPrize
	case 2:
		return c.SecondPrize
	case 3:
		return c.ThirdPrize
	}
	return decimal.Zero
}

// Уровень по месячным баллам: пороги проверяются сверху вниз,
// сравнение нестрогое - точное попадание в порог дает верхний уровень
func (c ClubConfig) LevelFor(monthly int64) string {
	switch {
	case monthly >= c.PlatinumThreshold:
		return LevelPlatinum
	case monthly >= c.GoldThreshold:
		return LevelGold
	case monthly >= c.SilverThreshold:
		return LevelSilver
	default:
		return LevelBronze
	}
}

// Результат месячного цикла
type CycleResult struct {
	Month         int
	Year          int
	Winners       []MonthlyWinner
	RolledOver    int // счетов баллов со сброшенным месяцем
	ResetAccounts int // кредитных счетов с восстановленным лимитом
	Skipped       int // счетов, пропущенных из-за ошибок
}
