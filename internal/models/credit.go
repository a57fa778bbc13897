package club

import (
	"time"

	"github.com/shopspring/decimal"
)

// Переходы состояния кредитного счета.
// Все проверки выполняются до изменения полей: при ошибке счет не меняется.

// Списание лимита при покупке
func (a *CreditAccount) Charge(amount decimal.Decimal) error {
	if !a.Active {
		return ErrAccountInactive
	}
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(a.Balance) {
		return ErrInsufficientCredit
	}
	a.Used = a.Used.Add(amount)
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// Восстановление лимита в начале цикла.
// Возвращает false, если сброс в этом месяце уже был - повторный вызов ничего не меняет
func (a *CreditAccount) ResetCycle(now time.Time) bool {
	if !a.LastReset.IsZero() &&
		a.LastReset.Year() == now.Year() && a.LastReset.Month() == now.Month() {
		return false
	}
	a.Used = decimal.Zero
	a.Balance = a.Limit
	a.LastReset = now
	return true
}

// Ручная корректировка: delta применяется к Used, Balance выводится заново.
// Отрицательный Used обрезается до нуля, превышение лимита - ошибка
func (a *CreditAccount) Adjust(delta decimal.Decimal) error {
	used := a.Used.Add(delta)
	if used.Sign() < 0 {
		used = decimal.Zero
	}
	if used.GreaterThan(a.Limit) {
		return ErrInvalidAdjustment
	}
	a.Used = used
	a.Balance = a.Limit.Sub(used)
	return nil
}

// Смена лимита при повторном назначении VIP
func (a *CreditAccount) SetLimit(limit decimal.Decimal) error {
	if limit.Sign() < 0 {
		return ErrInvalidAmount
	}
	if a.Used.GreaterThan(limit) {
		return ErrInvalidAmount
	}
	a.Limit = limit
	a.Balance = limit.Sub(a.Used)
	return nil
}
