// Package main runs the daily briefing job: collect recent articles from
// the configured sources, pick the best one, summarize it with each
// enabled LLM provider, and publish the results to object storage.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"briefing-agent/internal/infra/feedsource"
	"briefing-agent/internal/infra/fetcher"
	"briefing-agent/internal/infra/objstore"
	"briefing-agent/internal/llm"
	"briefing-agent/internal/observability/logging"
	"briefing-agent/internal/observability/metrics"
	"briefing-agent/internal/usecase/briefing"
	"briefing-agent/internal/usecase/notify"
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
	logger.Info("LLM registry ready", slog.Int("providers", registry.Len()))

	store, err := objstore.NewGCSStore(ctx, cfg.Bucket)
	if err != nil {
		logger.Error("failed to open object store",
			slog.String("bucket", cfg.Bucket),
			slog.Any("error", err))
		os.Exit(1)
	}

	contentCfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Error("invalid content fetch configuration", slog.Any("error", err))
		os.Exit(1)
	}

	svc := briefing.NewService(
		store,
		feedsource.NewFetcher(nil),
		fetcher.NewReadabilityFetcher(contentCfg),
		registry,
		notify.NewServiceFromEnv(),
		metrics.NewPipelineRecorder(),
	)

	result, err := svc.Run(ctx)
	if err != nil {
		logger.Error("daily briefing failed", slog.Any("error", err))
		os.Exit(1)
	}

	if result.NothingToDo {
		logger.Info("no fresh articles today, nothing to publish")
		return
	}

	logger.Info("daily briefing complete",
		slog.Int("articles_collected", result.ArticlesCollected),
		slog.String("selected_title", result.SelectedTitle),
		slog.Int("summaries_published", result.SummariesPublished))
}
