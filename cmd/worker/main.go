// Package main provides the standalone evaluation worker entry point. It runs
// the scheduler with no HTTP surface; useful when the API and the evaluation
// load are deployed separately.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/demand-radar/internal/adapter"
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
	logger.Info("Demand radar worker starting")

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

	userRepo := storage.NewUserRepository(postgres)
	keywordRepo := storage.NewKeywordRepository(postgres)
	alertRepo := storage.NewAlertRepository(postgres)
	historyRepo := storage.NewSignalHistoryRepository(clickhouse)
	signalCache := storage.NewSignalCache(redis)

	weather := adapter.NewOpenWeatherClient(&cfg.Providers.Weather, signalCache, cfg.Evaluation.SignalCacheTTL)
	trends := adapter.NewTrendsClient(&cfg.Providers.Trends, "", signalCache)
	holidays := adapter.NewCalendarificClient(&cfg.Providers.Holidays, signalCache, cfg.Evaluation.FestivalLookahead)

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

	// Run one pass immediately so a fresh deployment does not wait a full
	// interval for its first alerts.
	if _, err := sched.RunPass(ctx, scheduler.TriggerTimer); err != nil {
		logger.WithError(err).Error("Initial evaluation pass failed")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.WithField("signal", sig.String()).Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Scheduler shutdown failed")
	}

	logger.Info("Demand radar worker stopped")
}
