package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/croptrace/internal/config"
	"github.com/mamadbah2/croptrace/internal/metrics"
	"github.com/mamadbah2/croptrace/internal/repository/driver"
	"github.com/mamadbah2/croptrace/internal/repository/sheets"
	"github.com/mamadbah2/croptrace/internal/scheduler"
	"github.com/mamadbah2/croptrace/internal/server/handlers"
	"github.com/mamadbah2/croptrace/internal/server/router"
	alertsvc "github.com/mamadbah2/croptrace/internal/service/alerts"
	productionsvc "github.com/mamadbah2/croptrace/internal/service/production"
	reportingsvc "github.com/mamadbah2/croptrace/internal/service/reporting"
	"github.com/mamadbah2/croptrace/internal/service/stock"
	whatsappsvc "github.com/mamadbah2/croptrace/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/croptrace/pkg/clients/whatsapp"
	"github.com/mamadbah2/croptrace/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := driver.Open(startCtx, *cfg, logger.Named(baseLogger, "repo"))
	cancelStart()
	if err != nil {
		baseLogger.Fatal("failed to open store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close store", zap.Error(err))
		}
	}()

	var sheetsRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		sheetsRepo, err = sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
	} else {
		baseLogger.Warn("google sheets not configured, stock export disabled")
	}

	var messagingSvc whatsappsvc.MessagingService
	if cfg.WhatsApp.Enabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		messagingSvc = whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, logger.Named(baseLogger, "svc.whatsapp"))
	} else {
		baseLogger.Warn("whatsapp token missing, notifications disabled")
		messagingSvc = whatsappsvc.NewDisabledService(logger.Named(baseLogger, "svc.whatsapp"))
	}

	m := metrics.New()
	policy := stock.DefaultPolicy().WithSaleStatuses(cfg.Stock.SaleReserveStatuses)
	productionSvc := productionsvc.NewService(store, stock.NewEngine(policy), m, productionsvc.Options{
		CommitTimeout: cfg.Store.CommitTimeout,
		MaxAttempts:   cfg.Store.MaxAttempts,
	}, logger.Named(baseLogger, "svc.production"))
	alertSvc := alertsvc.NewService(productionSvc, m, logger.Named(baseLogger, "svc.alerts"))
	reportingSvc := reportingsvc.NewService(productionSvc, sheetsRepo, logger.Named(baseLogger, "svc.reporting"))

	stockHandler := handlers.NewStockHandler(productionSvc, logger.Named(baseLogger, "handlers.stock"))
	reportHandler := handlers.NewReportHandler(productionSvc, alertSvc, reportingSvc, messagingSvc, logger.Named(baseLogger, "handlers.report"))
	engine := router.New(stockHandler, reportHandler, m, logger.Named(baseLogger, "router"))

	sched, err := scheduler.NewScheduler(cfg.Reporting, alertSvc, reportingSvc, messagingSvc, logger.Named(baseLogger, "scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
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
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
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
