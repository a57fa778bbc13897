// Job - применение миграций схемы, запускается один раз при деплое
package main

import (
	"context"

	"go.uber.org/zap"

	db "github.com/glkeru/vipclub/internal/db"
)

func main() {
	// log
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	pool, err := db.NewPool(ctx)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	err = db.Migrate(ctx, pool, logger)
	if err != nil {
		logger.Error(err.Error())
		return
	}
	logger.Info("Job migrate is finished")
}
