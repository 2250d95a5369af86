package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jalasoft/jalanews/internal/api"
	"github.com/jalasoft/jalanews/internal/cache"
	"github.com/jalasoft/jalanews/internal/content"
	"github.com/jalasoft/jalanews/internal/db"
	"github.com/jalasoft/jalanews/internal/events"
	"github.com/jalasoft/jalanews/internal/fanout"
	"github.com/jalasoft/jalanews/internal/graph"
	"github.com/jalasoft/jalanews/internal/inbox"
	"github.com/jalasoft/jalanews/internal/redeliver"
	"github.com/jalasoft/jalanews/internal/store"
	"github.com/jalasoft/jalanews/internal/store/memory"
	"github.com/jalasoft/jalanews/internal/view"
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
	logger.Info("Starting JalaNews API Server", zap.String("store_backend", cfg.Store.Backend))

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	// Redis: change bus and account name cache
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
	}

	checks := map[string]api.HealthCheck{}
	if redisCache.Enabled() {
		checks["redis"] = redisCache.Health
	}

	st, err := openStore(cfg, bus)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer st.Close()
	checks["store"] = st.Health

	accounts := cache.NewAccountCache(st, redisCache, cfg.Redis.NameTTL)

	// Post lifecycle events
	var publisher events.Publisher = events.Nop{}
	if cfg.NATS.Enabled {
		natsPublisher, err := events.Connect(&cfg.NATS, logging.WithComponent("events"))
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		publisher = natsPublisher
	}
	defer publisher.Close()

	// Domain services
	graphService := graph.NewService(st, logging.WithComponent("graph"))
	inboxService := inbox.NewService(st, st, st.Bus(), cfg.View.NotificationLimit, logging.WithComponent("inbox"))
	engine, err := fanout.NewEngine(st, publisher, cfg.Fanout.Workers, logging.WithComponent("fanout"))
	if err != nil {
		logger.Fatal("Failed to create fan-out engine", zap.Error(err))
	}
	contentService := content.NewService(st, engine, publisher, logging.WithComponent("content"))
	views := view.NewAggregator(view.Deps{
		Accounts: accounts,
		Posts:    st,
		Comments: st,
		Bus:      st.Bus(),
		Graph:    graphService,
		Inbox:    inboxService,
	}, view.Options{
		CommentLimit: cfg.View.CommentDisplayLimit,
		AutoMarkRead: cfg.View.AutoMarkRead,
	}, logging.WithComponent("view"))

	// Background redelivery of recent posts
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if cfg.Redeliver.Enabled {
		sweeper := redeliver.NewSweeper(&cfg.Redeliver, st, engine, logging.WithComponent("redeliver"))
		go func() {
			_ = sweeper.Run(sweepCtx)
		}()
	}

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	api.NewRouter(api.Services{
		Accounts: accounts,
		Graph:    graphService,
		Fanout:   engine,
		Content:  contentService,
		Inbox:    inboxService,
		Views:    views,
	}, checks, logger).SetupRoutes(router)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// openStore opens the configured document store backend.
func openStore(cfg *config.Config, bus store.Bus) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		conn, err := db.New(&cfg.Database, cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		return db.NewStore(conn, bus), nil
	default:
		return memory.New(memory.WithBus(bus)), nil
	}
}
