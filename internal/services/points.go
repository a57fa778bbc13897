package club

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	interf "github.com/glkeru/vipclub/internal/interfaces"
	model "github.com/glkeru/vipclub/internal/models"
)

// Движок баллов лояльности: начисление по заказам, уровни, месячный rollover
type PointsService struct {
	logger *zap.Logger
	db     interf.PointsStorage
	config interf.ConfigStorage
	cache  interf.LeaderboardCache
}

func NewPointsService(logger *zap.Logger, db interf.PointsStorage, config interf.ConfigStorage, cache interf.LeaderboardCache) *PointsService {
	return &PointsService{logger, db, config, cache}
}

// Начисление за заказ: floor(сумма * points_per_dollar).
// Счет создается при первом начислении, уровень пересчитывается сразу
func (p *PointsService) Earn(ctx context.Context, user string, orderTotal decimal.Decimal, orderId string) (model.PointsAccount, error) {
	if orderTotal.Sign() <= 0 {
		return model.PointsAccount{}, model.ErrInvalidAmount
	}
	cfg, err := p.config.Get(ctx)
	if err != nil {
		return model.PointsAccount{}, err
	}

	points := orderTotal.Mul(cfg.PointsPerDollar).Floor().IntPart()
	acc, err := p.db.Earn(ctx, user, points, orderId, "order purchase", cfg)
	if err != nil {
		return acc, err
	}

	// рейтинг месяца поменялся
	if p.cache != nil {
		err = p.cache.InvalidateLeaderboard(ctx, acc.Month, acc.Year)
		if err != nil {
			p.logger.Error(err.Error())
		}
	}
	return acc, nil
}

// Переход счета на новый месяц. Если месяц уже текущий - ничего не делает
func (p *PointsService) Rollover(ctx context.Context, user string) (model.PointsAccount, error) {
	cfg, err := p.config.Get(ctx)
	if err != nil {
		return model.PointsAccount{}, err
	}
	return p.db.Rollover(ctx, user, time.Now(), cfg)
}

func (p *PointsService) Get(ctx context.Context, user string) (model.PointsAccount, error) {
	return p.db.Get(ctx, user)
}

// Все пользователи со счетами баллов
func (p *PointsService) Users(ctx context.Context) ([]string, error) {
	return p.db.Users(ctx)
}

// Топ счетов текущего месяца
func (p *PointsService) Top(ctx context.Context, limit int) ([]model.PointsAccount, error) {
	return p.db.Top(ctx, limit)
}

// Рейтинг для витрины - через кэш
func (p *PointsService) Leaderboard(ctx context.Context, limit int) (accounts []model.PointsAccount, err error) {
	now := time.Now()
	if p.cache != nil {
		accounts, err = p.cache.GetLeaderboard(ctx, int(now.Month()), now.Year())
		if err == nil {
			return accounts, nil
		}
	}
	accounts, err = p.db.Top(ctx, limit)
	if err != nil {
		return nil, err
	}
	if p.cache != nil {
		_ = p.cache.SetLeaderboard(ctx, int(now.Month()), now.Year(), accounts)
	}
	return accounts, nil
}

// История начислений
func (p *PointsService) History(ctx context.Context, user string) ([]model.PointsHistoryEntry, error) {
	return p.db.History(ctx, user)
}

func (p *PointsService) Log(err error) {
	p.logger.Error(err.Error())
}
