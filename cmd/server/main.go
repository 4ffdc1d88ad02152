package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/theb0imanuu/PharmaCheck/internal/config"
	"github.com/theb0imanuu/PharmaCheck/internal/repository"
	"github.com/theb0imanuu/PharmaCheck/internal/repository/memory"
	"github.com/theb0imanuu/PharmaCheck/internal/repository/mongodb"
	"github.com/theb0imanuu/PharmaCheck/internal/repository/sheets"
	"github.com/theb0imanuu/PharmaCheck/internal/scheduler"
	"github.com/theb0imanuu/PharmaCheck/internal/server/handlers"
	"github.com/theb0imanuu/PharmaCheck/internal/server/router"
	inventorysvc "github.com/theb0imanuu/PharmaCheck/internal/service/inventory"
	possvc "github.com/theb0imanuu/PharmaCheck/internal/service/pos"
	syncsvc "github.com/theb0imanuu/PharmaCheck/internal/service/sync"
	"github.com/theb0imanuu/PharmaCheck/pkg/clients/anthropic"
	"github.com/theb0imanuu/PharmaCheck/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	var store repository.Store
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		baseLogger.Warn("using embedded in-memory store, data will not survive restarts")
		store = memory.NewStore(baseLogger.Named("repo.memory"))
	default:
		mongoStore, err := mongodb.NewStore(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName, baseLogger.Named("repo.mongo"))
		if err != nil {
			baseLogger.Fatal("failed to init mongodb store", zap.Error(err))
		}
		store = mongoStore
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close store", zap.Error(err))
		}
	}()

	inventorySvc := inventorysvc.NewService(store, baseLogger.Named("svc.inventory"))
	posSvc := possvc.NewService(store, baseLogger.Named("svc.pos"))
	reconciler := syncsvc.NewReconciler(store, posSvc, baseLogger.Named("svc.sync"))

	var aiClient anthropic.Client
	if cfg.AI.AnthropicKey != "" {
		aiClient = anthropic.NewClient(cfg.AI.AnthropicKey)
		baseLogger.Info("restock advisor enabled")
	} else {
		baseLogger.Warn("anthropic api key missing, restock advisor disabled")
	}

	var reportSink sheets.Repository
	if cfg.SheetsEnabled() {
		reportSink, err = sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
	} else {
		baseLogger.Warn("google sheets not configured, daily report sink disabled")
	}

	inventoryHandler := handlers.NewInventoryHandler(inventorySvc, baseLogger.Named("handlers.inventory"))
	saleHandler := handlers.NewSaleHandler(posSvc, reconciler, baseLogger.Named("handlers.sales"))
	aiHandler := handlers.NewAIHandler(inventorySvc, aiClient, cfg.Reporting.WindowDays, baseLogger.Named("handlers.ai"))
	engine := router.New(inventoryHandler, saleHandler, aiHandler, cfg.Auth.Token, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Reporting, inventorySvc, reportSink, aiClient, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
