package main

import (
	"context"
	"log"

	"warehouse-service/config"
	"warehouse-service/internal/migrate"
	"warehouse-service/internal/seed"
	"warehouse-service/internal/service"
	"warehouse-service/internal/store"
	"warehouse-service/internal/util"

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

	db, err := store.NewStore(cfg.Database.URL, store.Options{MaxOpenConns: 2, MaxIdleConns: 1})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if err := migrate.Up(ctx, db.GetDB().DB); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	catalog := service.NewCatalogService(db, nil)
	ledger := service.NewLedgerService(db, nil, nil, service.DefaultScanLimits())

	res, err := seed.Apply(ctx, catalog, ledger, logger)
	if err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}
	logger.Info("Sample data ready", zap.Int("products_added", res.Products), zap.Int("items_added", res.Items))
}
