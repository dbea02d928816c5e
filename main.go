package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"schoolku_billing/internals/configs"
	database "schoolku_billing/internals/databases"
	"schoolku_billing/internals/features/finance/billings/repository"
	"schoolku_billing/internals/features/finance/billings/scheduler"
	"schoolku_billing/internals/features/finance/billings/service"
	helper "schoolku_billing/internals/helpers"
	middlewares "schoolku_billing/internals/middlewares"
	routes "schoolku_billing/internals/route"
	"schoolku_billing/internals/seeds"
)

func main() {
	seedOnly := flag.Bool("seed", false, "jalankan seed demo lalu keluar")
	flag.Parse()

	cfg := configs.LoadEnv()

	logger, err := configs.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// 🔌 DB connect + pool
	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	database.TunePool(db, cfg.BillingWorkers, logger)
	if cfg.AutoMigrate || *seedOnly {
		if err := database.AutoMigrate(db); err != nil {
			logger.Fatal("auto migrate failed", zap.Error(err))
		}
	}

	if *seedOnly {
		if err := seeds.RunAllSeeds(db, logger); err != nil {
			logger.Fatal("seed failed", zap.Error(err))
		}
		return
	}

	// 🧮 Billing engine
	loc := cfg.Location()
	configRepo := repository.NewConfigRepository(db)
	engine := service.NewEngine(
		configRepo,
		repository.NewDirectoryRepository(db),
		repository.NewPaymentRepository(db),
		service.EngineOptions{Workers: cfg.BillingWorkers, Location: loc, Logger: logger},
	)

	// ⏱ scheduler setelah DB siap
	cron, err := scheduler.New(engine, scheduler.Config{
		Schedule: cfg.BillingCron,
		Location: loc,
		Parallel: cfg.BillingCronParallel,
		Timeout:  cfg.BillingCronTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("billing scheduler", zap.Error(err))
	}
	cron.Start()

	app := fiber.New(fiber.Config{
		// 🚀 JSON super cepat
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		DisableStartupMessage:   true,
		ErrorHandler:            helper.JsonFromError,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0/0"},
	})

	middlewares.SetupMiddlewares(app, middlewares.Options{
		CorsOrigins:    cfg.CorsOrigins,
		RateLimit:      cfg.RateLimit,
		RequestTimeout: cfg.RequestTimeout,
		TimeZone:       cfg.BillingTimezone,
		Log:            logger,
	})

	// ✅ Routes
	routes.SetupRoutes(app, routes.Deps{
		Cfg:     cfg,
		DB:      db,
		Configs: configRepo,
		Engine:  engine,
		Log:     logger,
	})

	// 🔒 Keep-Alive & timeout koneksi server
	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 60 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	// Start server non-blocking
	go func() {
		logger.Info("✅ Listening", zap.String("port", cfg.Port))
		if err := app.Listen("0.0.0.0:" + cfg.Port); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown: HTTP → cron → pool DB
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)
	cron.Stop(ctx)

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("👋 shutdown complete")
}
