package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "github.com/thanhnm3/khomypham/docs"
	appcatalog "github.com/thanhnm3/khomypham/internal/application/catalog"
	appinv "github.com/thanhnm3/khomypham/internal/application/inventory"
	appreport "github.com/thanhnm3/khomypham/internal/application/report"
	apptrade "github.com/thanhnm3/khomypham/internal/application/trade"
	"github.com/thanhnm3/khomypham/internal/infrastructure/cache"
	"github.com/thanhnm3/khomypham/internal/infrastructure/config"
	"github.com/thanhnm3/khomypham/internal/infrastructure/event"
	"github.com/thanhnm3/khomypham/internal/infrastructure/lock"
	"github.com/thanhnm3/khomypham/internal/infrastructure/logger"
	"github.com/thanhnm3/khomypham/internal/infrastructure/persistence"
	"github.com/thanhnm3/khomypham/internal/infrastructure/telemetry"
	"github.com/thanhnm3/khomypham/internal/interfaces/http/handler"
	"github.com/thanhnm3/khomypham/internal/interfaces/http/middleware"
	"github.com/thanhnm3/khomypham/internal/interfaces/http/router"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "Path to a TOML config file (default: search ./config.toml)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting stock ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("lock_backend", cfg.Lock.Backend),
	)

	tel, err := telemetry.NewProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		ServiceName:       cfg.App.Name,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ExportInterval:    cfg.Telemetry.ExportInterval,
	}, log)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()
	log = tel.BridgeLogger(log)

	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.SQLLevel)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := tel.InstrumentGorm(db.DB, cfg.Database.Driver); err != nil {
		return fmt.Errorf("instrument database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			return err
		}
		log.Info("Database schema migrated")
	}

	locker, closeLocker, err := lock.NewProductLocker(cfg.Lock, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeLocker(); err != nil {
			log.Error("Error closing lock backend", zap.Error(err))
		}
	}()

	idempotency, err := cache.NewIdempotencyStore(cfg.Lock, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer func() { _ = idempotency.Close() }()

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	batchRepo := persistence.NewGormBatchRepository(db.DB)
	allocationRepo := persistence.NewGormAllocationRepository(db.DB)
	receivingRepo := persistence.NewGormReceivingOrderRepository(db.DB)
	shippingRepo := persistence.NewGormShippingOrderRepository(db.DB)

	// Ledger events
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(appinv.NewLowStockHandler(log, cfg.Ledger.LowStockThreshold))
	ledgerMetrics, err := telemetry.NewLedgerMetrics(tel.Meter(telemetry.MeterName))
	if err != nil {
		return fmt.Errorf("create ledger metrics: %w", err)
	}
	bus.Subscribe(ledgerMetrics)

	// Services
	batchStore := appinv.NewBatchStore(batchRepo, allocationRepo, productRepo, locker, log)
	batchStore.SetEventPublisher(bus)
	engine := appinv.NewAllocationEngine(batchRepo, allocationRepo, persistence.NewGormTransactionScope(db.DB), locker, log)
	engine.SetEventPublisher(bus)
	stock := appinv.NewStockAggregator(batchRepo, productRepo)
	stock.SetAlertDefaults(cfg.Ledger.LowStockThreshold, cfg.Ledger.ExpiringWindow)
	processor := apptrade.NewOrderProcessor(receivingRepo, shippingRepo, productRepo, batchStore, engine, log)
	profit := appreport.NewProfitService(shippingRepo, receivingRepo, allocationRepo, productRepo, log)
	products := appcatalog.NewProductService(productRepo, log)

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	if tel.Enabled() {
		r.Use(otelgin.Middleware(cfg.App.Name))
	}
	r.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	handlers := router.LedgerHandlers{
		Products:  handler.NewProductHandler(products),
		Inventory: handler.NewInventoryHandler(batchStore, stock, engine),
		Orders:    handler.NewOrderHandler(processor),
		Reports:   handler.NewReportHandler(profit, stock),
		Health:    handler.NewHealthHandler(db),
		Posting:   middleware.Idempotency(idempotency, cfg.HTTP.IdempotencyTTL),
	}
	if cfg.HTTP.SwaggerEnabled {
		handlers.Swagger = ginSwagger.WrapHandler(swaggerFiles.Handler)
	}
	router.SetupLedger(r, handlers)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bus.Start(ctx); err != nil {
		return fmt.Errorf("start event bus: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		if err := bus.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("stop event bus: %w", err)
		}
		delivered, failed := bus.Stats()
		log.Info("Server exited gracefully",
			zap.Int64("events_delivered", delivered),
			zap.Int64("events_failed", failed),
		)
		return nil
	})

	return g.Wait()
}
