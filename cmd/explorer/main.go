// Package main runs the explorer job: validate user-submitted feed
// candidates, ask the primary LLM to scout for new sources when none were
// submitted, and prune sources that have gone quiet.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"briefing-agent/internal/discovery"
	"briefing-agent/internal/infra/objstore"
	"briefing-agent/internal/llm"
	"briefing-agent/internal/observability/logging"
	"briefing-agent/internal/observability/metrics"
	"briefing-agent/internal/usecase/explore"
	"briefing-agent/pkg/config"
)

func main() {
	_ = godotenv.Load()

	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.LoadPipeline()
	if err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	registry, err := llm.NewRegistryFromEnv()
	if err != nil {
		logger.Error("failed to build LLM registry", slog.Any("error", err))
		os.Exit(1)
	}

	store, err := objstore.NewGCSStore(ctx, cfg.Bucket)
	if err != nil {
		logger.Error("failed to open object store",
			slog.String("bucket", cfg.Bucket),
			slog.Any("error", err))
		os.Exit(1)
	}

	primary := registry.Primary()
	svc := explore.NewService(
		store,
		discovery.NewEngine(nil, primary),
		discovery.NewReviewer(nil),
		primary,
		metrics.NewPipelineRecorder(),
	)

	result, err := svc.Run(ctx)
	if err != nil {
		logger.Error("explorer run failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("explorer run complete",
		slog.Int("sources_added", result.SourcesAdded),
		slog.Int("sources_removed", result.SourcesRemoved),
		slog.Int("total_sources", result.TotalSources),
		slog.Bool("roster_updated", result.Updated))
}
