package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/harshaldxb/leadengine/internal/auth"
	"github.com/harshaldxb/leadengine/internal/config"
	"github.com/harshaldxb/leadengine/internal/execution"
	"github.com/harshaldxb/leadengine/internal/handlers"
	"github.com/harshaldxb/leadengine/internal/registry"
	"github.com/harshaldxb/leadengine/internal/repository"
	"github.com/harshaldxb/leadengine/internal/router"
	"github.com/harshaldxb/leadengine/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running and DATABASE_URL is correct", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	if err := repository.EnsureSchema(ctx, pool); err != nil {
		slog.Error("Failed to apply schema", "error", err)
		os.Exit(1)
	}

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
		PoolTimeout:  30 * time.Second,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Cannot reach Redis", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to Redis", "addr", cfg.RedisAddr)

	// Repositories
	auctionRepo := repository.NewAuctionRepo(pool)
	agentRepo := repository.NewAgentRepo(pool)
	propertyRepo := repository.NewPropertyRepo(pool)
	commissionRepo := repository.NewCommissionRepo(pool)
	apiKeyRepo := repository.NewAPIKeyRepo(pool)
	inquiryStore := repository.NewInquiryRedisStore(rdb)

	// Lead alerts: insert func is set after River client is created (breaks init cycle)
	var insertMu sync.Mutex
	var insertFn execution.InsertFunc
	insertNotify := func(ctx context.Context, args execution.NotifyAgentArgs) error {
		insertMu.Lock()
		fn := insertFn
		insertMu.Unlock()
		if fn == nil {
			return errors.New("river insert not wired")
		}
		return fn(ctx, args)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, execution.NewNotifyAgentWorker(agentRepo, auctionRepo, cfg.NotifyRatePerSec, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.NotifyWorkers},
		},
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	insertMu.Lock()
	insertFn = func(ctx context.Context, args execution.NotifyAgentArgs) error {
		_, err := riverClient.Insert(ctx, args, &river.InsertOpts{
			UniqueOpts: river.UniqueOpts{ByArgs: true},
		})
		return err
	}
	insertMu.Unlock()

	// Services. The river worker marks deliveries, so the dispatcher gets no marker.
	dispatcher := services.NewDispatcher(execution.NewRiverGateway(insertNotify), nil, cfg.NotifyWorkers, logger)
	ledger := services.NewReliabilityLedger(agentRepo, logger)
	loyalty := services.NewInquiryLoyaltyTracker(inquiryStore, logger)
	loyalty.Window = cfg.InquiryWindow
	calculator := services.NewCommissionCalculator(logger)

	coordinator := services.NewAuctionCoordinator(services.AuctionDeps{
		Auctions:    auctionRepo,
		Inventory:   propertyRepo,
		Properties:  propertyRepo,
		Selector:    services.NewTieringEngine(agentRepo),
		Notifier:    dispatcher,
		Reliability: ledger,
		Loyalty:     loyalty,
		Calculator:  calculator,
		Commissions: commissionRepo,
		Deals:       agentRepo,
	}, logger)
	coordinator.Window = cfg.AuctionWindow
	markets := services.NewMarketReporter(propertyRepo, auctionRepo, logger)

	validator, err := services.NewValidator()
	if err != nil {
		slog.Error("Schema validator init failed", "error", err)
		os.Exit(1)
	}

	// Auth & Registry
	authSvc := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)
	if err := authSvc.EnsureOperator(ctx, cfg.BootstrapOperatorEmail, cfg.BootstrapOperatorPassword); err != nil {
		slog.Error("Failed to seed bootstrap operator", "error", err)
		os.Exit(1)
	}
	registrySvc := registry.NewService(agentRepo, apiKeyRepo, propertyRepo)

	apiV1 := router.New(router.Deps{
		Auth:        auth.NewHandler(authSvc, validator, logger),
		Registry:    registry.NewHandler(registrySvc, validator, logger),
		Auctions:    &handlers.AuctionHandler{Auctions: coordinator, Validator: validator, Logger: logger},
		Commissions: &handlers.CommissionHandler{Calculator: calculator, Validator: validator, Logger: logger},
		Agents:      &handlers.AgentHandler{Reliability: ledger, Inquiries: loyalty, Validator: validator, Logger: logger},
		Markets:     &handlers.MarketHandler{Markets: markets, Logger: logger},
		Tokens:      authSvc,
		Keys:        apiKeyRepo,
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
	}).Handler(apiV1)

	// Start River client (delivers lead alerts)
	if err := riverClient.Start(ctx); err != nil {
		slog.Error("River client failed to start", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	dispatcher.Close()
	if err := riverClient.Stop(shutdownCtx); err != nil {
		slog.Error("River client stop failed", "error", err)
	}
}
