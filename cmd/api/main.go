package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quayretail/orderdesk-backend/api/routes"
	"github.com/quayretail/orderdesk-backend/internal/auth"
	"github.com/quayretail/orderdesk-backend/internal/customers"
	"github.com/quayretail/orderdesk-backend/internal/importer"
	"github.com/quayretail/orderdesk-backend/internal/inventory"
	"github.com/quayretail/orderdesk-backend/internal/orders"
	"github.com/quayretail/orderdesk-backend/internal/payments"
	"github.com/quayretail/orderdesk-backend/internal/returns"
	"github.com/quayretail/orderdesk-backend/internal/users"
	"github.com/quayretail/orderdesk-backend/pkg/auth/session"
	"github.com/quayretail/orderdesk-backend/pkg/config"
	"github.com/quayretail/orderdesk-backend/pkg/db"
	"github.com/quayretail/orderdesk-backend/pkg/logger"
	"github.com/quayretail/orderdesk-backend/pkg/metrics"
	"github.com/quayretail/orderdesk-backend/pkg/migrate"
	"github.com/quayretail/orderdesk-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())
	customerRepo := customers.NewRepository(dbClient.DB())
	inventoryRepo := inventory.NewRepository(dbClient.DB())
	returnRepo := returns.NewRepository(dbClient.DB())

	userService, err := users.NewService(userRepo, cfg.Password, logg, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	if cfg.FeatureFlags.SeedAdmin {
		password := os.Getenv("ORDERDESK_ADMIN_PASSWORD")
		if password == "" {
			password = "admin123"
		}
		if _, err := userService.EnsureDefaultAdmin(context.Background(), password); err != nil {
			logg.Error(context.Background(), "failed to seed default admin", err)
			os.Exit(1)
		}
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Users:          userService,
		UserLoader:     userRepo,
		SessionManager: sessionManager,
		RateLimiter:    redisClient,
		JWTConfig:      cfg.JWT,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orderRepo, dbClient, orders.NewInventoryAdjuster(), customerRepo, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	holds, err := payments.NewManager(orderService, cfg.Payment, metrics.NewPaymentSessionMetrics(prometheus.DefaultRegisterer), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment hold manager", err)
		os.Exit(1)
	}
	defer holds.Close()

	returnService, err := returns.NewService(returnRepo, orderRepo, dbClient, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create return service", err)
		os.Exit(1)
	}

	customerService, err := customers.NewService(customerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create customer service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(inventoryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	importEngine, err := importer.NewEngine(importer.EngineParams{
		Orders:      orderRepo,
		Inventory:   inventoryRepo,
		Customers:   customerRepo,
		Returns:     returnRepo,
		Users:       userRepo,
		PasswordCfg: cfg.Password,
		Config:      cfg.Import,
		Metrics:     metrics.NewImportMetrics(prometheus.DefaultRegisterer),
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create import engine", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, prometheus.DefaultGatherer, routes.Services{
			Auth:      authService,
			Users:     userService,
			Orders:    orderService,
			Payments:  holds,
			Returns:   returnService,
			Customers: customerService,
			Inventory: inventoryService,
			Importer:  importEngine,
		}),
	}

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
