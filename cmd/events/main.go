// Job - оценка правил по событиям
// Опрос Kafka (транзакции и визиты) -> Evaluate по всем активным правилам бизнеса
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	db "github.com/glkeru/loyalty/rules/internal/db"
	kafka "github.com/glkeru/loyalty/rules/internal/external/kafka"
	rabbit "github.com/glkeru/loyalty/rules/internal/external/rabbitmq"
	services "github.com/glkeru/loyalty/rules/internal/services"
	tracing "github.com/glkeru/loyalty/rules/observability/otel"
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

	shutdown := tracing.InitTracer(context.Background(), "rules-events", logger)
	defer shutdown()

	// kafka
	reader, err := kafka.GetNewReader(kafka.Topic)
	if err != nil {
		panic(err)
	}
	defer reader.CloseReader()

	// database
	storage, err := db.OpenStorage(logger)
	if err != nil {
		panic(err)
	}
	defer storage.Close()

	stores := services.Stores{
		Rules:    storage.Rules,
		History:  storage.Loyalty,
		Triggers: storage.Loyalty,
		Awards:   storage.Loyalty,
		Progress: storage.Loyalty,
		Cache:    storage.Cacher(),
	}
	notifier, err := rabbit.NewRabbitNotifier()
	if err != nil {
		logger.Warn("notifications are disabled", zap.Error(err))
	} else {
		defer notifier.Close()
		stores.Notifier = notifier
	}
	engine := services.NewRuleEngineService(stores, logger)

	// start
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	semcount := 5
	if semenv := os.Getenv("RULES_EVENTS_COUNT"); semenv != "" {
		if n, err := strconv.Atoi(semenv); err == nil && n > 0 {
			semcount = n
		}
	}

	wg := &sync.WaitGroup{}
	semaphore := make(chan struct{}, semcount)

	for {
		body, err := reader.GetNewMessage(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("read event", zap.Error(err))
			}
			break
		}
		ec, err := kafka.ParseEvent(body)
		if err != nil {
			logger.Warn("skip event", zap.Error(err))
			continue
		}

		semaphore <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-semaphore }()
			result, err := engine.Evaluate(ctx, ec)
			if err != nil {
				logger.Error("evaluate event",
					zap.String("customer", ec.CustomerID),
					zap.String("business", ec.BusinessID),
					zap.Error(err),
				)
				return
			}
			if result.Triggered > 0 {
				logger.Info("rules triggered",
					zap.String("customer", ec.CustomerID),
					zap.Int("count", result.Triggered),
				)
			}
		}()
	}
	wg.Wait()
}
