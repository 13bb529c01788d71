// Package notify fans briefing announcements out to the configured chat
// channels. The daily pipeline runs once and exits, so delivery is
// sequential and failures are logged rather than propagated: a webhook
// outage must never roll back an already-published summary.
package notify

import (
	"context"
	"log/slog"
	"os"
	"time"

	"briefing-agent/internal/domain/entity"
	"briefing-agent/internal/infra/notifier"
)

const defaultWebhookTimeout = 30 * time.Second

// Service delivers announcements to every configured channel.
type Service struct {
	channels []notifier.Channel
}

// NewService creates a Service dispatching to the given channels.
func NewService(channels ...notifier.Channel) *Service {
	return &Service{channels: channels}
}

// NewServiceFromEnv builds a Service from environment configuration.
// DISCORD_WEBHOOK_URL and SLACK_WEBHOOK_URL each enable a channel when
// set; with neither set the service carries a single no-op channel.
func NewServiceFromEnv() *Service {
	var channels []notifier.Channel

	if url := os.Getenv("DISCORD_WEBHOOK_URL"); url != "" {
		channels = append(channels, notifier.NewDiscordChannel(notifier.DiscordConfig{
			Enabled:    true,
			WebhookURL: url,
			Timeout:    defaultWebhookTimeout,
		}))
	}

	if url := os.Getenv("SLACK_WEBHOOK_URL"); url != "" {
		channels = append(channels, notifier.NewSlackChannel(notifier.SlackConfig{
			Enabled:    true,
			WebhookURL: url,
			Timeout:    defaultWebhookTimeout,
		}))
	}

	if len(channels) == 0 {
		slog.Info("no notification webhooks configured, announcements disabled")
		channels = append(channels, notifier.NewNoopChannel())
	}

	return NewService(channels...)
}

// Announce sends the manifest entry to every channel in turn. A channel
// failure is logged and the remaining channels still run.
func (s *Service) Announce(ctx context.Context, entry entity.ManifestEntry) {
	for _, ch := range s.channels {
		if err := ch.Announce(ctx, entry); err != nil {
			slog.Error("notification channel failed",
				slog.String("channel", ch.Name()),
				slog.String("title", entry.Title),
				slog.Any("error", err))
			continue
		}
		slog.Info("announcement delivered",
			slog.String("channel", ch.Name()),
			slog.String("title", entry.Title))
	}
}
