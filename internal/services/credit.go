package club

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	interf "github.com/glkeru/vipclub/internal/interfaces"
	model "github.com/glkeru/vipclub/internal/models"
)

// Кредитный движок VIP клуба.
// Все мутации счетов проходят только через него и журналируются
type CreditService struct {
	logger *zap.Logger
	db     interf.CreditStorage
}

func NewCreditService(logger *zap.Logger, db interf.CreditStorage) *CreditService {
	return &CreditService{logger, db}
}

// Назначение кредитного лимита админом. Один счет на пользователя
func (s *CreditService) Assign(ctx context.Context, user string, limit decimal.Decimal, assignedBy string, notes string) (model.CreditAccount, error) {
	if limit.Sign() < 0 {
		return model.CreditAccount{}, model.ErrInvalidAmount
	}
	acc, err := s.db.Assign(ctx, user, limit, assignedBy, notes)
	if err != nil {
		return acc, err
	}
	s.logger.Info("vip credit assigned",
		zap.String("user", user),
		zap.String("limit", limit.String()),
		zap.String("assignedBy", assignedBy))
	return acc, nil
}

// Покупка в кредит по завершенному заказу
func (s *CreditService) Charge(ctx context.Context, user string, amount decimal.Decimal, orderId string) (model.CreditAccount, error) {
	if amount.Sign() <= 0 {
		return model.CreditAccount{}, model.ErrInvalidAmount
	}
	return s.db.Charge(ctx, user, amount, orderId)
}

// Восстановление лимита
func (s *CreditService) Reset(ctx context.Context, user string) (model.CreditAccount, error) {
	return s.db.Reset(ctx, user)
}

// Ручная корректировка задолженности
func (s *CreditService) Adjust(ctx context.Context, user string, delta decimal.Decimal, description string) (model.CreditAccount, error) {
	acc, err := s.db.Adjust(ctx, user, delta, description)
	if err != nil {
		return acc, err
	}
	s.logger.Info("vip credit adjusted",
		zap.String("user", user),
		zap.String("delta", delta.String()),
		zap.String("description", description))
	return acc, nil
}

// Установка политики платежа: токен валидируется и сразу разрешается в дату
func (s *CreditService) SetDueDate(ctx context.Context, user string, policy string) (model.CreditAccount, error) {
	date, err := ResolveDueDate(policy, time.Now())
	if err != nil {
		return model.CreditAccount{}, err
	}
	return s.db.SetDueDate(ctx, user, policy, date)
}

// Деактивация счета админом
func (s *CreditService) Deactivate(ctx context.Context, user string) (model.CreditAccount, error) {
	return s.db.Deactivate(ctx, user)
}

func (s *CreditService) Get(ctx context.Context, user string) (model.CreditAccount, error) {
	return s.db.Get(ctx, user)
}

func (s *CreditService) List(ctx context.Context) ([]model.CreditAccount, error) {
	return s.db.List(ctx)
}

// Счета, ожидающие сброса с начала цикла
func (s *CreditService) ResetDue(ctx context.Context, cycleStart time.Time) ([]string, error) {
	return s.db.ListResetDue(ctx, cycleStart)
}

// История транзакций счета
func (s *CreditService) Transactions(ctx context.Context, user string) ([]model.CreditTransaction, error) {
	return s.db.Transactions(ctx, user)
}
