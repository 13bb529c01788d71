// Package notifier delivers briefing announcements to chat webhooks. It
// defines the Channel interface which allows different delivery mechanisms
// (Discord, Slack) to be used interchangeably, plus a no-op channel for
// when notifications are disabled.
package notifier

import (
	"context"

	"briefing-agent/internal/domain/entity"
)

// Channel delivers a briefing announcement to one destination.
// Implementations handle rate limiting, retries, and error logging
// internally and respect context cancellation.
type Channel interface {
	// Name identifies the channel in logs.
	Name() string

	// Announce sends a notification about a freshly published briefing.
	Announce(ctx context.Context, entry entity.ManifestEntry) error
}
