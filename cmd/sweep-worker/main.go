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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lmsinform84-bit/orbfood-backend/internal/activity"
	"github.com/lmsinform84-bit/orbfood-backend/internal/invoices"
	"github.com/lmsinform84-bit/orbfood-backend/internal/periods"
	"github.com/lmsinform84-bit/orbfood-backend/internal/sweep"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/config"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/db"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/logger"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/metrics"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sweep-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sweep-worker",
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

	registry := prometheus.NewRegistry()
	job, err := sweep.NewJob(sweep.JobParams{
		Logger:    logg,
		Reader:    sweep.NewReader(dbClient.DB()),
		Attacher:  invoicesSvc,
		Metrics:   metrics.NewJobMetrics(registry),
		BatchSize: cfg.Sweep.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep job", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Sweep.Interval.String(),
	})
	logg.Info(ctx, "starting sweep worker")

	metricsServer := &http.Server{
		Addr:    ":" + cfg.Sweep.MetricsPort,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}()

	ticker := time.NewTicker(cfg.Sweep.Interval)
	defer ticker.Stop()

	if err := job.Run(ctx); err != nil {
		logg.Error(ctx, "sweep run failed", err)
	}

	for {
		select {
		case <-ctx.Done():
			logg.Info(ctx, "sweep worker shutting down gracefully")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logg.Error(ctx, "metrics server shutdown failed", err)
			}
			return
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				logg.Error(ctx, "sweep run failed", err)
			}
		}
	}
}
