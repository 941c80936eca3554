package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/salesql/salesql/internal/app"
	"github.com/salesql/salesql/internal/config"
	"github.com/salesql/salesql/internal/observability"
)

func main() {
	cfg, err := config.LoadFromEnv("salesql-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	flag.StringVar(&cfg.Dataset.Name, "dataset", cfg.Dataset.Name, "dataset name (object key prefix)")
	flag.IntVar(&cfg.Dataset.Rows, "rows", cfg.Dataset.Rows, "number of transactions to generate")
	flag.Int64Var(&cfg.Dataset.Seed, "seed", cfg.Dataset.Seed, "random seed")
	flag.IntVar(&cfg.Dataset.Year, "year", cfg.Dataset.Year, "calendar year of the generated orders")
	flag.IntVar(&cfg.Dataset.UploadConcurrency, "concurrency", cfg.Dataset.UploadConcurrency, "parallel partition uploads")
	flag.Parse()

	logger := observability.NewLogger(cfg, os.Stdout)
	if cfg.ObjectStore.Driver == config.DriverMemory {
		logger.Warn("object store driver is memory; the published dataset is discarded on exit")
	}
	if cfg.Dataset.Rows <= 0 {
		logger.Error("rows must be > 0", slog.Int("rows", cfg.Dataset.Rows))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg.History.Driver = config.DriverMemory
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = application.Close() }()

	manifest, err := application.Publish(ctx)
	if err != nil {
		logger.Error("publish dataset failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("dataset published",
		slog.String("dataset", manifest.Dataset),
		slog.Int("rows", manifest.Rows),
		slog.Int("partitions", len(manifest.Partitions)),
		slog.Int64("size_bytes", manifest.SizeBytes()),
	)
}
