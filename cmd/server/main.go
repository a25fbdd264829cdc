package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warehouse-service/config"
	"warehouse-service/internal/api"
	"warehouse-service/internal/broker"
	"warehouse-service/internal/migrate"
	"warehouse-service/internal/redisclient"
	"warehouse-service/internal/service"
	"warehouse-service/internal/store"
	"warehouse-service/internal/util"
	"warehouse-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting warehouse service", zap.String("env", cfg.Server.Env))

	tp, err := util.InitTracer(cfg.Observ.ServiceName, cfg.Observ.JaegerEndpoint, cfg.Observ.TraceRatio)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL, store.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := migrate.Up(context.Background(), db.GetDB().DB); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
		logger.Info("Migrations applied")
	}

	var (
		cache  service.LevelCache
		locker worker.Locker
		closer []func() error
	)
	closer = append(closer, db.Close)

	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.LevelTTL)
		if err != nil {
			logger.Warn("Redis unavailable, serving inventory levels from the database", zap.Error(err))
		} else {
			cache = redisClient
			locker = redisClient
			closer = append(closer, redisClient.Close)
			logger.Info("Redis connected", zap.Duration("level_ttl", cfg.Redis.LevelTTL))
		}
	}

	var publisher service.EventPublisher
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
		publisher = broker.NewEventPublisher(producer)
		closer = append(closer, producer.Close)
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicEvents))
	}

	limits := service.ScanLimits{Default: cfg.Business.RecentScansDefault, Max: cfg.Business.RecentScansMax}
	catalogService := service.NewCatalogService(db, cache)
	ledgerService := service.NewLedgerService(db, cache, publisher, limits)
	alertService := service.NewAlertService(db, cache, publisher)

	if cache != nil {
		if err := alertService.WarmLevelCache(context.Background()); err != nil {
			logger.Warn("Failed to warm inventory level cache", zap.Error(err))
		}
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var scanWorker *worker.ScanWorker
	if cfg.Kafka.Enabled {
		scanConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicScans, cfg.Kafka.ConsumerGroup)
		scanWorker = worker.NewScanWorker(scanConsumer, ledgerService)
		go func() {
			if err := scanWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Scan worker error", zap.Error(err))
			}
		}()
	}

	var refresher *worker.AlertRefresher
	if cfg.Business.AlertRefreshInterval > 0 {
		refresher = worker.NewAlertRefresher(alertService, locker, cfg.Business.AlertRefreshInterval)
		refresher.Start(workerCtx)
	}

	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(catalogService, ledgerService, alertService, db, api.Options{
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowOrigins:   cfg.Server.AllowOrigins,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	var errs error
	errs = multierr.Append(errs, srv.Shutdown(shutdownCtx))

	workerCancel()
	if refresher != nil {
		refresher.Stop()
	}
	if scanWorker != nil {
		errs = multierr.Append(errs, scanWorker.Stop())
	}
	for i := len(closer) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, closer[i]())
	}

	if errs != nil {
		logger.Error("Shutdown finished with errors", zap.Errors("errors", multierr.Errors(errs)))
		return
	}
	logger.Info("Server exited")
}
