package club

import (
	"context"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	interf "github.com/glkeru/vipclub/internal/interfaces"
	model "github.com/glkeru/vipclub/internal/models"
)

// Закрытие месячного цикла: фиксация победителей, rollover баллов,
// восстановление кредитных лимитов.
// Ошибка по одному счету не останавливает весь цикл
type CycleService struct {
	logger  *zap.Logger
	credit  *CreditService
	points  *PointsService
	config  interf.ConfigStorage
	winners interf.WinnerStorage
	workers int
}

func NewCycleService(logger *zap.Logger, credit *CreditService, points *PointsService, config interf.ConfigStorage, winners interf.WinnerStorage) *CycleService {
	// TODO DEFAULT
	var workers int
	wenv := os.Getenv("CLUB_CYCLE_WORKERS")
	if wenv == "" {
		workers = 3
	} else {
		var err error
		workers, err = strconv.Atoi(wenv)
		if err != nil {
			workers = 3
		}
	}
	if workers < 1 {
		workers = 1
	}
	return &CycleService{logger, credit, points, config, winners, workers}
}

func (s *CycleService) RunCycle(ctx context.Context, month int, year int) (result model.CycleResult, err error) {
	result.Month = month
	result.Year = year

	// цикл закрывается один раз
	exists, err := s.winners.Exists(ctx, month, year)
	if err != nil {
		return result, err
	}
	if exists {
		return result, model.ErrCycleAlreadyRun
	}

	cfg, err := s.config.Get(ctx)
	if err != nil {
		return result, err
	}

	// топ-3 месяца, при равных баллах побеждает достигший раньше
	top, err := s.points.Top(ctx, 3)
	if err != nil {
		return result, err
	}
	for i, acc := range top {
		result.Winners = append(result.Winners, model.MonthlyWinner{
			User:        acc.User,
			Month:       month,
			Year:        year,
			Position:    i + 1,
			Points:      acc.Monthly,
			PrizeAmount: cfg.PrizeForPosition(i + 1),
		})
	}
	if len(result.Winners) > 0 {
		err = s.winners.Create(ctx, result.Winners)
		if err != nil {
			return result, err
		}
	}

	var rolled, reset, skipped int64

	// rollover всех счетов баллов, каждый счет - своя транзакция
	users, err := s.points.Users(ctx)
	if err != nil {
		return result, err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, user := range users {
		user := user
		g.Go(func() error {
			_, rerr := s.points.Rollover(gctx, user)
			if rerr != nil {
				atomic.AddInt64(&skipped, 1)
				s.logger.Error("points rollover failed",
					zap.String("user", user),
					zap.Error(rerr))
				return nil
			}
			atomic.AddInt64(&rolled, 1)
			return nil
		})
	}
	g.Wait()

	// восстановление лимитов: только активные счета, не сброшенные в этом цикле,
	// и только когда день сброса уже наступил
	now := time.Now()
	cycleStart := dayOfMonth(now.Year(), now.Month(), cfg.MonthlyResetDay, now.Location())
	if !now.Before(cycleStart) {
		due, derr := s.credit.ResetDue(ctx, cycleStart)
		if derr != nil {
			return result, derr
		}
		g, gctx = errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for _, user := range due {
			user := user
			g.Go(func() error {
				_, rerr := s.credit.Reset(gctx, user)
				if rerr != nil {
					atomic.AddInt64(&skipped, 1)
					s.logger.Error("credit reset failed",
						zap.String("user", user),
						zap.Error(rerr))
					return nil
				}
				atomic.AddInt64(&reset, 1)
				return nil
			})
		}
		g.Wait()
	}

	result.RolledOver = int(rolled)
	result.ResetAccounts = int(reset)
	result.Skipped = int(skipped)

	s.logger.Info("monthly cycle finished",
		zap.Int("month", month),
		zap.Int("year", year),
		zap.Int("winners", len(result.Winners)),
		zap.Int("rolledOver", result.RolledOver),
		zap.Int("resetAccounts", result.ResetAccounts),
		zap.Int("skipped", result.Skipped))
	return result, nil
}
