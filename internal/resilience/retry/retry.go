// Package retry provides retry logic with exponential backoff bounded by a
// total elapsed-time budget, plus the error classification that decides
// whether a failure is worth retrying at all.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Config holds the configuration for retry logic.
type Config struct {
	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration

	// Multiplier is the multiplier for exponential backoff
	Multiplier float64

	// MaxElapsedTime bounds the total time spent retrying. Once exceeded,
	// the last error is returned even if it was classified transient.
	MaxElapsedTime time.Duration
}

// DefaultConfig returns a default retry configuration.
func DefaultConfig() Config {
	return Config{
		InitialDelay:   1 * time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		MaxElapsedTime: 120 * time.Second,
	}
}

// LLMConfig returns configuration for LLM API calls. The elapsed budget is
// generous because rate-limit backoff from the providers can stretch over a
// minute, but it stays bounded so a run never hangs on one provider.
func LLMConfig() Config {
	return Config{
		InitialDelay:   2 * time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		MaxElapsedTime: 120 * time.Second,
	}
}

// FeedFetchConfig returns configuration for feed fetching. Feeds are cheap
// to refetch and one slow source must not eat the run's time budget.
func FeedFetchConfig() Config {
	return Config{
		InitialDelay:   1 * time.Second,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		MaxElapsedTime: 30 * time.Second,
	}
}

// WithBackoff executes fn with exponential backoff until it succeeds, fails
// permanently, or the elapsed-time budget runs out. Errors are classified by
// IsTransient: a permanent error aborts immediately and is returned as-is.
func WithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialDelay
	bo.MaxInterval = cfg.MaxDelay
	bo.Multiplier = cfg.Multiplier

	attempt := 0
	op := func() (struct{}, error) {
		attempt++
		err := fn()
		if err == nil {
			if attempt > 1 {
				slog.Info("operation succeeded after retry",
					slog.Int("attempt", attempt))
			}
			return struct{}{}, nil
		}

		if !IsTransient(err) {
			slog.Warn("permanent error, not retrying",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	notify := func(err error, delay time.Duration) {
		slog.Warn("transient error, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.Any("error", err))
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(cfg.MaxElapsedTime),
		backoff.WithNotify(notify))
	return err
}

// HTTPError represents a non-success HTTP response, carrying the status code
// and the response body text for diagnostics.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}
