// Job - истечение отложенных выборов наград и просроченных вояжей
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	db "github.com/glkeru/loyalty/rules/internal/db"
	services "github.com/glkeru/loyalty/rules/internal/services"
	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// log
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info(".env is not loaded", zap.Error(err))
	}
	minutes := 5
	if env := os.Getenv("RULES_SWEEP_MINUTES"); env != "" {
		if n, err := strconv.Atoi(env); err == nil && n > 0 {
			minutes = n
		}
	}

	// database
	storage, err := db.OpenStorage(logger)
	if err != nil {
		panic(err)
	}
	defer storage.Close()

	engine := services.NewRuleEngineService(services.Stores{
		Rules:    storage.Rules,
		History:  storage.Loyalty,
		Triggers: storage.Loyalty,
		Awards:   storage.Loyalty,
		Progress: storage.Loyalty,
	}, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		panic(err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(time.Duration(minutes)*time.Minute),
		gocron.NewTask(func() {
			choices, progress, err := engine.Sweep(ctx)
			if err != nil {
				logger.Error("sweep", zap.Error(err))
				return
			}
			logger.Info("sweep",
				zap.Int64("choices", choices),
				zap.Int64("progress", progress),
			)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		panic(err)
	}
	scheduler.Start()

	<-ctx.Done()
	if err := scheduler.Shutdown(); err != nil {
		logger.Error("scheduler shutdown", zap.Error(err))
	}
}
