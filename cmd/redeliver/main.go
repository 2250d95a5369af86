package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/jalasoft/jalanews/internal/cache"
	"github.com/jalasoft/jalanews/internal/db"
	"github.com/jalasoft/jalanews/internal/fanout"
	"github.com/jalasoft/jalanews/internal/redeliver"
	"github.com/jalasoft/jalanews/internal/store"
	"github.com/jalasoft/jalanews/pkg/config"
	"github.com/jalasoft/jalanews/pkg/logging"
	"github.com/jalasoft/jalanews/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting JalaNews redelivery worker")

	if cfg.Store.Backend != config.BackendPostgres {
		logger.Fatal("Redelivery worker needs the postgres store backend",
			zap.String("store_backend", cfg.Store.Backend))
	}
	cfg.Redeliver.Enabled = true
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid redelivery configuration", zap.Error(err))
	}

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	conn, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	// Change notices must reach the API servers' live screens.
	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()

	var bus store.Bus = store.NewLocalBus()
	if redisCache.Enabled() {
		if bus, err = cache.NewBus(redisCache); err != nil {
			logger.Fatal("Failed to create change bus", zap.Error(err))
		}
	} else {
		logger.Warn("Redis disabled; redelivered notifications appear on open screens after their next change")
	}

	st := db.NewStore(conn, bus)
	defer st.Close()

	engine, err := fanout.NewEngine(st, nil, cfg.Fanout.Workers, logging.WithComponent("fanout"))
	if err != nil {
		logger.Fatal("Failed to create fan-out engine", zap.Error(err))
	}
	sweeper := redeliver.NewSweeper(&cfg.Redeliver, st, engine, logging.WithComponent("redeliver"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Redelivery worker stopped", zap.Error(err))
	}
	logger.Info("Redelivery worker exited")
}
