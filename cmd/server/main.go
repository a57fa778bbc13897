// HTTP API - админка VIP кредитов, настройки клуба и витрина (балансы, рейтинг, победители)
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	api "github.com/glkeru/vipclub/internal/api"
	db "github.com/glkeru/vipclub/internal/db"
	interf "github.com/glkeru/vipclub/internal/interfaces"
	services "github.com/glkeru/vipclub/internal/services"
	otelinit "github.com/glkeru/vipclub/observability/otel"
)

func main() {
	// log
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// config
	port := os.Getenv("CLUB_HTTP_PORT")
	if port == "" {
		panic("env CLUB_HTTP_PORT is not set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// tracing
	shutdownTracer := otelinit.InitTracer(ctx)
	defer shutdownTracer()

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
		cache = nil
	} else {
		cache = redis
	}

	// services
	credit := services.NewCreditService(logger, creditStorage)
	points := services.NewPointsService(logger, pointsStorage, configStorage, cache)
	cycle := services.NewCycleService(logger, credit, points, configStorage, winnerStorage)

	// api handlers
	handler := api.NewHandler(credit, points, cycle, configStorage, winnerStorage, logger)
	root := http.NewServeMux()
	root.Handle("/metrics", promhttp.Handler())
	root.Handle("/", otelhttp.NewHandler(handler, "club"))

	srv := &http.Server{
		Handler:      root,
		Addr:         ":" + port,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	go srv.ListenAndServe()

	// shutdown
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt
	timeout, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTimeout()
	err = srv.Shutdown(timeout)
	if err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
