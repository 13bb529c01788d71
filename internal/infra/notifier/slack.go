package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"briefing-agent/internal/domain/entity"
)

// SlackConfig contains configuration for Slack webhook notifications.
type SlackConfig struct {
	Enabled    bool
	WebhookURL string
	Timeout    time.Duration
}

// SlackChannel announces briefings to Slack via incoming webhook using
// Block Kit.
type SlackChannel struct {
	config      SlackConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewSlackChannel creates a SlackChannel. Slack incoming webhooks allow
// roughly one message per second.
func NewSlackChannel(config SlackConfig) *SlackChannel {
	return &SlackChannel{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(1.0, 1),
	}
}

// Name implements Channel.
func (s *SlackChannel) Name() string { return "slack" }

// slackWebhookPayload represents the Block Kit payload sent to Slack.
type slackWebhookPayload struct {
	Text   string       `json:"text"` // Fallback text for notifications
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string          `json:"type"`
	Text     *slackBlockText `json:"text,omitempty"`
	Elements []slackElement  `json:"elements,omitempty"`
}

type slackBlockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

const (
	maxSlackFallbackLength = 150
	maxSlackSectionLength  = 3000
)

// buildBlockPayload creates a Slack Block Kit payload: a section with the
// linked title and snippet, plus a context block naming the model.
func (s *SlackChannel) buildBlockPayload(entry entity.ManifestEntry) slackWebhookPayload {
	fallback := truncateText(entry.Title, maxSlackFallbackLength, truncationSuffix)

	sectionText := fmt.Sprintf("*<%s|%s>*\n\n%s", entry.URL, entry.Title, entry.SummarySnippet)
	sectionText = truncateText(sectionText, maxSlackSectionLength, truncationSuffix)

	return slackWebhookPayload{
		Text: fallback,
		Blocks: []slackBlock{
			{
				Type: "section",
				Text: &slackBlockText{
					Type: "mrkdwn",
					Text: sectionText,
				},
			},
			{
				Type: "context",
				Elements: []slackElement{
					{
						Type: "mrkdwn",
						Text: fmt.Sprintf("%s · summarized by %s", entry.Date, entry.Model),
					},
				},
			},
		},
	}
}

// sendWebhookRequest sends one webhook request. Slack responds with a plain
// "ok" body on success.
func (s *SlackChannel) sendWebhookRequest(ctx context.Context, entry entity.ManifestEntry) error {
	jsonData, err := json.Marshal(s.buildBlockPayload(entry))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			Message:    "Slack rate limit exceeded",
			RetryAfter: extractRetryAfter(resp, body),
		}
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Slack API client error: %s", string(body)),
		}
	}

	if resp.StatusCode >= 500 {
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Slack API server error: %s", string(body)),
		}
	}

	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
}

func (s *SlackChannel) sendWithRetry(ctx context.Context, entry entity.ManifestEntry) error {
	const (
		maxAttempts = 2
		baseDelay   = 5 * time.Second
	)

	requestID, _ := ctx.Value(requestIDKey).(string)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := s.sendWebhookRequest(ctx, entry)
		if err == nil {
			slog.Info("Slack notification successful",
				slog.String("request_id", requestID),
				slog.String("url", entry.URL),
				slog.Int("attempt", attempt))
			return nil
		}

		lastErr = err

		if rateLimitErr, ok := is429Error(err); ok {
			slog.Warn("Slack rate limit hit, backing off",
				slog.String("request_id", requestID),
				slog.Duration("retry_after", rateLimitErr.RetryAfter),
				slog.Int("attempt", attempt))

			select {
			case <-time.After(rateLimitErr.RetryAfter):
				continue
			case <-ctx.Done():
				return fmt.Errorf("context canceled during rate limit backoff: %w", ctx.Err())
			}
		}

		if !isRetryableError(err) {
			slog.Error("Slack notification failed with non-retryable error",
				slog.String("request_id", requestID),
				slog.String("url", entry.URL),
				slog.Any("error", err),
				slog.Int("attempt", attempt))
			return err
		}

		if attempt < maxAttempts {
			delay := baseDelay * time.Duration(attempt)
			slog.Warn("Slack API request failed, retrying",
				slog.String("request_id", requestID),
				slog.Any("error", err),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))

			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return fmt.Errorf("context canceled during retry backoff: %w", ctx.Err())
			}
		}
	}

	return fmt.Errorf("slack notification failed after %d attempts: %w", maxAttempts, lastErr)
}

// Announce implements Channel.
func (s *SlackChannel) Announce(ctx context.Context, entry entity.ManifestEntry) error {
	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, requestIDKey, requestID)

	slog.Info("starting Slack notification",
		slog.String("request_id", requestID),
		slog.String("title", entry.Title),
		slog.String("url", entry.URL))

	if err := s.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	return s.sendWithRetry(ctx, entry)
}
