package notifier

import (
	"context"
	"log/slog"

	"briefing-agent/internal/domain/entity"
)

// NoopChannel discards announcements. Used when no webhook is configured.
type NoopChannel struct{}

func NewNoopChannel() *NoopChannel { return &NoopChannel{} }

// Name implements Channel.
func (n *NoopChannel) Name() string { return "noop" }

// Announce implements Channel.
func (n *NoopChannel) Announce(_ context.Context, entry entity.ManifestEntry) error {
	slog.Debug("noop notifier: discarding announcement",
		slog.String("title", entry.Title),
		slog.String("url", entry.URL))
	return nil
}
