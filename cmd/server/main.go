package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/mfcosta-games/cyber-siege-backend/internal/catalog"
	"github.com/mfcosta-games/cyber-siege-backend/internal/config"
	"github.com/mfcosta-games/cyber-siege-backend/internal/engine"
	"github.com/mfcosta-games/cyber-siege-backend/internal/httpapi"
	"github.com/mfcosta-games/cyber-siege-backend/internal/registry"
	"github.com/mfcosta-games/cyber-siege-backend/internal/report"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatal("load catalog", zap.Error(err))
	}

	var store *report.Store
	if cfg.DatabaseURL != "" {
		store, err = report.Open(cfg.DatabaseURL, logger.Named("report"))
		if err != nil {
			logger.Fatal("open report store", zap.Error(err))
		}
	}

	ctx := context.Background()
	eng := engine.New(cat)
	reg := registry.New(ctx, eng, registry.Options{
		Logger:      logger.Named("registry"),
		GracePeriod: cfg.GracePeriod,
		SessionTTL:  cfg.SessionTTL,
		OnFinished:  store.SaveFinished,
	})

	// Build the router *with* the registry injected
	handler := httpapi.SetupRoutes(reg, cat, logger, cfg.AllowedOrigins)

	logger.Info("listening",
		zap.String("addr", cfg.Addr),
		zap.Int("themes", cat.Size()))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
