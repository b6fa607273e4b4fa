// Package main provides the API server entry point for the demand radar
// service. The server embeds the evaluation scheduler.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/demand-radar/internal/adapter"
	"github.com/demand-radar/internal/api"
	"github.com/demand-radar/internal/config"
	"github.com/demand-radar/internal/logging"
	"github.com/demand-radar/internal/scheduler"
	"github.com/demand-radar/internal/service"
	"github.com/demand-radar/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()
	logger.Info("Demand radar server starting")

	// Database connections
	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to ClickHouse")
	}
	defer clickhouse.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	logger.Info("Database connections established")

	// Repositories
	userRepo := storage.NewUserRepository(postgres)
	keywordRepo := storage.NewKeywordRepository(postgres)
	alertRepo := storage.NewAlertRepository(postgres)
	historyRepo := storage.NewSignalHistoryRepository(clickhouse)
	signalCache := storage.NewSignalCache(redis)

	// Signal providers
	weather := adapter.NewOpenWeatherClient(&cfg.Providers.Weather, signalCache, cfg.Evaluation.SignalCacheTTL)
	trends := adapter.NewTrendsClient(&cfg.Providers.Trends, "", signalCache)
	holidays := adapter.NewCalendarificClient(&cfg.Providers.Holidays, signalCache, cfg.Evaluation.FestivalLookahead)

	// Evaluation pipeline
	signals := service.NewSignalService(weather, trends, holidays, nil, historyRepo, logger)
	evaluator := service.NewEvaluator(
		signals,
		service.NewDemandDetector(&cfg.Evaluation),
		service.NewPromotionTimingEngine(&cfg.Evaluation),
		service.NewAlertSynthesizer(alertRepo, &cfg.Evaluation, logger),
		keywordRepo,
		logger,
	)

	sched, err := scheduler.NewScheduler(&scheduler.Config{
		Interval:    cfg.Evaluation.Interval,
		Concurrency: cfg.Evaluation.Concurrency,
		Users:       userRepo,
		Evaluator:   evaluator,
		Logger:      logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create scheduler")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start scheduler")
	}

	server := api.NewServer(
		&api.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		alertRepo,
		keywordRepo,
		userRepo,
		sched,
		logger,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	case err := <-errCh:
		logger.WithError(err).Error("API server stopped unexpectedly")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Scheduler shutdown failed")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	logger.Info("Demand radar server stopped")
}
