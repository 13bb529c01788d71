// Package llm provides a uniform client interface over the supported LLM
// providers (Gemini, Claude, OpenAI). Every provider is invoked through a
// single code path that applies retry with an elapsed-time budget, a
// per-provider circuit breaker, and invocation metrics, so the backends
// themselves stay single-shot HTTP calls.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"briefing-agent/internal/resilience/circuitbreaker"
	"briefing-agent/internal/resilience/retry"
)

// Provider is the name of an LLM backend.
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// invokeTimeout bounds a single API attempt. The retry budget on top of it
// is configured separately (see retry.LLMConfig).
const invokeTimeout = 60 * time.Second

// Client invokes an LLM provider with a single-prompt request and returns
// the first textual content fragment of the reply.
type Client interface {
	// Name returns the provider name.
	Name() Provider

	// Model returns the model identifier requests are sent to.
	Model() string

	// Invoke sends the prompt as one user message and returns the reply
	// text. Transient failures are retried with exponential backoff up to
	// the elapsed-time budget; permanent failures return immediately.
	Invoke(ctx context.Context, prompt string) (string, error)
}

// backend is the raw single-attempt call a provider implements. The
// resilient wrapper owns retries, breaking, and observability.
type backend interface {
	name() Provider
	model() string
	invoke(ctx context.Context, prompt string) (string, error)
}

// resilientClient wraps a backend with retry logic, a circuit breaker, and
// invocation metrics. It is the only Client implementation.
type resilientClient struct {
	backend     backend
	breaker     *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
	metrics     InvocationMetricsRecorder
}

func newResilientClient(b backend) *resilientClient {
	return &resilientClient{
		backend:     b,
		breaker:     circuitbreaker.New(circuitbreaker.ProviderConfig(string(b.name()) + "-api")),
		retryConfig: retry.LLMConfig(),
		metrics:     NewPrometheusInvocationMetrics(),
	}
}

func (c *resilientClient) Name() Provider { return c.backend.name() }
func (c *resilientClient) Model() string  { return c.backend.model() }

func (c *resilientClient) Invoke(ctx context.Context, prompt string) (string, error) {
	requestID := uuid.New().String()
	provider := string(c.backend.name())

	slog.Debug("invoking provider",
		slog.String("request_id", requestID),
		slog.String("provider", provider),
		slog.String("model", c.backend.model()),
		slog.Int("prompt_length", len(prompt)))

	start := time.Now()
	var result string

	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, invokeTimeout)
		defer cancel()

		cbResult, err := c.breaker.Execute(func() (interface{}, error) {
			return c.backend.invoke(attemptCtx, prompt)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("provider circuit breaker open, request rejected",
					slog.String("request_id", requestID),
					slog.String("provider", provider),
					slog.String("state", c.breaker.State().String()))
				return fmt.Errorf("%s api unavailable: circuit breaker open", provider)
			}
			return err
		}

		result = cbResult.(string)
		return nil
	})

	duration := time.Since(start)
	c.metrics.RecordInvocation(provider, retryErr == nil)
	c.metrics.RecordDuration(provider, duration)

	if retryErr != nil {
		slog.Error("provider invocation failed",
			slog.String("request_id", requestID),
			slog.String("provider", provider),
			slog.Duration("duration", duration),
			slog.Any("error", retryErr))
		return "", fmt.Errorf("%s invoke failed: %w", provider, retryErr)
	}

	slog.Debug("provider invocation completed",
		slog.String("request_id", requestID),
		slog.String("provider", provider),
		slog.Duration("duration", duration),
		slog.Int("reply_length", len(result)))

	return result, nil
}
