package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/rental-session/internal/api/http"
	"github.com/spec-kit/rental-session/internal/config"
	"github.com/spec-kit/rental-session/internal/mockapi"
	"github.com/spec-kit/rental-session/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	backend := mockapi.New(cfg.Auth, logger)
	user, err := backend.Seed(context.Background())
	if err != nil {
		logger.Fatal("failed to seed backend", zap.Error(err))
	}
	logger.Info("demo account ready", zap.String("email", user.Email), zap.String("password", mockapi.DemoPassword))

	metrics := observability.NewMetrics()
	app := httptransport.NewApp(cfg, backend, logger, metrics)

	go func() {
		if err := app.Listen(cfg.MockAPI.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("mock api listening", zap.String("addr", cfg.MockAPI.Addr()))

	waitForShutdown(logger)

	_ = app.Shutdown()
	logger.Info("request counters", zap.Any("requests", metrics.Snapshot().Requests))
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
