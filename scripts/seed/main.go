package main

import (
	"context"
	_ "embed"
	"log/slog"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/servicebook/servicebook/internal/app"
)

//go:embed demo.yaml
var demo []byte

func main() {
	ctx := context.Background()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	var roots map[string]any
	if err := yaml.Unmarshal(demo, &roots); err != nil {
		logger.Error("parse demo data", slog.Any("error", err))
		os.Exit(1)
	}

	st, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	paths := make([]string, 0, len(roots))
	for path := range roots {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		logger.Info("seeding", slog.String("path", path))
		if err := st.Set(ctx, path, roots[path]); err != nil {
			logger.Error("seed", slog.String("path", path), slog.Any("error", err))
			os.Exit(1)
		}
	}

	services, err := app.NewServices(st, cfg, logger, nil)
	if err != nil {
		logger.Error("wire services", slog.Any("error", err))
		os.Exit(1)
	}
	repaired, err := services.Controller.Backfill(ctx)
	if err != nil {
		logger.Error("backfill", slog.Any("error", err))
		os.Exit(1)
	}
	if err := services.Controller.Ensure(ctx); err != nil {
		logger.Error("load seeded ledger", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seed complete",
		slog.Int("backfilled_vehicles", repaired),
		slog.Int("records", len(services.Controller.Rows())),
	)
}
