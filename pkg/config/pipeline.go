package config

import (
	"fmt"
	"time"
)

// PipelineConfig holds the top-level settings shared by the daily and
// explorer jobs.
type PipelineConfig struct {
	// Bucket is the GCS bucket holding sources, summaries, and the manifest.
	Bucket string

	// RunTimeout bounds a whole pipeline run. Scheduled jobs that hang
	// past this are killed rather than left to block the next run.
	RunTimeout time.Duration
}

// LoadPipeline reads pipeline configuration from environment variables.
//
// Environment variables:
//   - GCS_BUCKET: bucket name (default: "briefing-agent")
//   - RUN_TIMEOUT: duration string bounding the whole run (default: 15m)
func LoadPipeline() (PipelineConfig, error) {
	cfg := PipelineConfig{
		Bucket:     GetEnvString("GCS_BUCKET", "briefing-agent"),
		RunTimeout: GetEnvDuration("RUN_TIMEOUT", 15*time.Minute),
	}

	if cfg.Bucket == "" {
		return PipelineConfig{}, fmt.Errorf("GCS_BUCKET must not be empty")
	}
	if err := ValidatePositiveDuration(cfg.RunTimeout); err != nil {
		return PipelineConfig{}, fmt.Errorf("invalid RUN_TIMEOUT: %w", err)
	}

	return cfg, nil
}
