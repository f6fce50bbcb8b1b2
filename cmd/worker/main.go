package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/servicebook/servicebook/internal/app"
	"github.com/servicebook/servicebook/internal/catalog/groups"
	"github.com/servicebook/servicebook/internal/catalog/items"
	"github.com/servicebook/servicebook/internal/catalog/vehicletypes"
	"github.com/servicebook/servicebook/internal/observability"
	"github.com/servicebook/servicebook/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	st, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	metrics := observability.NewMetrics()
	services, err := app.NewServices(st, cfg, logger, metrics)
	if err != nil {
		logger.Error("wire services", slog.Any("error", err))
		os.Exit(1)
	}

	backfillJob := jobs.NewBackfillJob(services.Controller, logger, metrics.Jobs())
	normalizeJob := jobs.NewNormalizeSortJob(services.Controller, map[string]jobs.Normalizer{
		items.Source:        services.Items,
		groups.Source:       services.Groups,
		vehicletypes.Source: services.VehicleTypes,
	}, logger, metrics.Jobs())

	cron, err := jobs.DailyMaintenance()
	if err != nil {
		logger.Error("build maintenance schedule", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cfg.QueueOptions(),
		Logger:    logger,
		Location:  services.Location,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskBackfillTimestamps, Handler: backfillJob.Handle},
			{Type: jobs.TaskNormalizeSort, Handler: normalizeJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
