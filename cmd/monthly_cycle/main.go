// Job - закрытие месячного цикла (cron или кнопка в админке)
// Победители месяца, rollover баллов, восстановление кредитных лимитов,
// публикация итогов для композера уведомлений
package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	db "github.com/glkeru/vipclub/internal/db"
	rabbitmq "github.com/glkeru/vipclub/internal/external/rabbitmq"
	interf "github.com/glkeru/vipclub/internal/interfaces"
	services "github.com/glkeru/vipclub/internal/services"
)

func main() {
	// log
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// database
	pool, err := db.NewPool(ctx)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	var creditStorage interf.CreditStorage = db.NewCreditDB(pool, logger)
	var pointsStorage interf.PointsStorage = db.NewPointsDB(pool, logger)
	var configStorage interf.ConfigStorage = db.NewConfigDB(pool, logger)
	var winnerStorage interf.WinnerStorage = db.NewWinnersDB(pool, logger)

	// cache
	var cache interf.LeaderboardCache
	redis, err := db.NewCacheService()
	if err != nil {
		logger.Error(err.Error())
	} else {
		cache = redis
	}

	// services
	credit := services.NewCreditService(logger, creditStorage)
	points := services.NewPointsService(logger, pointsStorage, configStorage, cache)
	cycle := services.NewCycleService(logger, credit, points, configStorage, winnerStorage)

	now := time.Now()
	result, err := cycle.RunCycle(ctx, int(now.Month()), now.Year())
	if err != nil {
		logger.Error(err.Error())
		return
	}

	// итоги - композеру уведомлений
	if len(result.Winners) > 0 {
		announcer, err := rabbitmq.NewRabbitAnnouncer()
		if err != nil {
			logger.Error(err.Error())
			return
		}
		defer announcer.Close()
		err = announcer.Announce(ctx, result.Winners)
		if err != nil {
			logger.Error(err.Error())
			return
		}
	}
	logger.Info("Job monthly cycle is finished")
}
