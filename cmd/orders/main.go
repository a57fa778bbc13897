// Job - обработка завершенных заказов
// Опрос Kafka -> начисление баллов, для VIP покупок в кредит - списание лимита
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	db "github.com/glkeru/vipclub/internal/db"
	kafka "github.com/glkeru/vipclub/internal/external/kafka"
	interf "github.com/glkeru/vipclub/internal/interfaces"
	model "github.com/glkeru/vipclub/internal/models"
	services "github.com/glkeru/vipclub/internal/services"
)

// Событие завершенного заказа
type OrderEvent struct {
	OrderId   string          `json:"orderId"`
	UserId    string          `json:"userId"`
	Total     decimal.Decimal `json:"total"`
	VipCredit bool            `json:"vipCredit"` // оплата VIP кредитом
}

func parseOrder(orderJson string) (order OrderEvent, err error) {
	err = json.Unmarshal([]byte(orderJson), &order)
	if err != nil {
		return order, err
	}
	if order.UserId == "" {
		return order, fmt.Errorf("invalid order: userId field is required")
	}
	if order.OrderId == "" {
		return order, fmt.Errorf("invalid order: orderId field is required")
	}
	return order, nil
}

func main() {
	// log
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// kafka
	reader, err := kafka.GetNewReader("orders")
	if err != nil {
		panic(err)
	}
	defer reader.CloseReader()

	// database
	pool, err := db.NewPool(ctx)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	var creditStorage interf.CreditStorage = db.NewCreditDB(pool, logger)
	var pointsStorage interf.PointsStorage = db.NewPointsDB(pool, logger)
	var configStorage interf.ConfigStorage = db.NewConfigDB(pool, logger)

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

	// start
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	// TODO: default
	var semcount int
	semenv := os.Getenv("CLUB_ORDERS_COUNT")
	if semenv == "" {
		semcount = 5
	} else {
		semcount, err = strconv.Atoi(semenv)
		if err != nil {
			semcount = 5
		}
	}
	if semcount == 0 {
		semcount = 1
	}

	wg := &sync.WaitGroup{}
	semaphore := make(chan struct{}, semcount)

loop:
	for {
		select {
		case <-interrupt:
			cancel()
			break loop
		case <-ctx.Done():
			break loop
		default:

			orderJson, err := reader.GetNewMessage(ctx)
			if err != nil {
				logger.Error(err.Error())
				break loop
			}

			semaphore <- struct{}{}
			wg.Add(1)
			go func(orderJson string) {
				defer wg.Done()
				defer func() { <-semaphore }()

				order, err := parseOrder(orderJson)
				if err != nil {
					logger.Error(err.Error())
					return
				}

				// списание кредитного лимита - только при оплате VIP кредитом
				if order.VipCredit {
					_, err = credit.Charge(ctx, order.UserId, order.Total, order.OrderId)
					if err != nil {
						logger.Error("credit charge failed",
							zap.String("user", order.UserId),
							zap.String("order", order.OrderId),
							zap.Error(err))
						if !errors.Is(err, model.ErrInsufficientCredit) &&
							!errors.Is(err, model.ErrAccountInactive) &&
							!errors.Is(err, model.ErrNotFound) {
							return
						}
						// бизнес-отказ по кредиту не отменяет начисление баллов
					}
				}

				// баллы начисляются за любой завершенный заказ
				_, err = points.Earn(ctx, order.UserId, order.Total, order.OrderId)
				if err != nil {
					logger.Error("points earn failed",
						zap.String("user", order.UserId),
						zap.String("order", order.OrderId),
						zap.Error(err))
				}
			}(orderJson)
		}
	}
	wg.Wait()
}
