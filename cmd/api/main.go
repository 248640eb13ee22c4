package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/lmsinform84-bit/orbfood-backend/api/routes"
	"github.com/lmsinform84-bit/orbfood-backend/internal/activity"
	"github.com/lmsinform84-bit/orbfood-backend/internal/invoices"
	"github.com/lmsinform84-bit/orbfood-backend/internal/orders"
	"github.com/lmsinform84-bit/orbfood-backend/internal/periods"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/config"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/db"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/logger"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/migrate"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	feeRate, err := cfg.Billing.Rate()
	if err != nil {
		logg.Error(context.Background(), "invalid billing fee rate", err)
		os.Exit(1)
	}

	periodManager, err := periods.NewManager(periods.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create period manager", err)
		os.Exit(1)
	}

	activityRecorder, err := activity.NewRecorder(activity.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create activity recorder", err)
		os.Exit(1)
	}

	invoicesSvc, err := invoices.NewService(
		invoices.NewRepository(dbClient.DB()),
		dbClient,
		periodManager,
		activityRecorder,
		feeRate,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create invoices service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, invoicesSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, redisClient, ordersSvc, invoicesSvc),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "server shutdown failed", err)
		}
	}

	logg.Info(ctx, "api server stopped")
}
