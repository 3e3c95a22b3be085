// HTTP + gRPC сервер движка правил: оценка, выбор наград, вояжи, симулятор и администрирование правил
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/glkeru/loyalty/rules/internal/api"
	grpcapi "github.com/glkeru/loyalty/rules/internal/api/grpc"
	db "github.com/glkeru/loyalty/rules/internal/db"
	rabbit "github.com/glkeru/loyalty/rules/internal/external/rabbitmq"
	services "github.com/glkeru/loyalty/rules/internal/services"
	tracing "github.com/glkeru/loyalty/rules/observability/otel"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func main() {
	// log
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// config
	if err := godotenv.Load(); err != nil {
		logger.Info(".env is not loaded", zap.Error(err))
	}
	port := os.Getenv("RULES_PORT")
	if port == "" {
		panic("env RULES_PORT is not set")
	}
	grpcport := os.Getenv("RULES_GRPC_PORT")
	if grpcport == "" {
		panic("env RULES_GRPC_PORT is not set")
	}

	shutdown := tracing.InitTracer(context.Background(), "rules", logger)
	defer shutdown()

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
	// уведомления
	notifier, err := rabbit.NewRabbitNotifier()
	if err != nil {
		logger.Warn("notifications are disabled", zap.Error(err))
	} else {
		defer notifier.Close()
		stores.Notifier = notifier
	}
	engine := services.NewRuleEngineService(stores, logger)

	// api handlers
	r := api.NewHandler(engine, logger)
	srv := &http.Server{
		Handler:      r.Traced(),
		Addr:         ":" + port,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// gRPC
	lis, err := net.Listen("tcp", "0.0.0.0:"+grpcport)
	if err != nil {
		panic(err)
	}
	grpcServer := grpc.NewServer()
	grpcapi.RegisterRulesServer(grpcServer, grpcapi.NewRulesService(engine, logger))
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	// shutdown
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt
	grpcServer.GracefulStop()
	timeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = srv.Shutdown(timeout)
	if err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
