package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"briefing-agent/internal/domain/entity"
)

type recordingChannel struct {
	name    string
	err     error
	entries []entity.ManifestEntry
}

func (r *recordingChannel) Name() string { return r.name }

func (r *recordingChannel) Announce(_ context.Context, entry entity.ManifestEntry) error {
	r.entries = append(r.entries, entry)
	return r.err
}

func TestService_Announce_AllChannels(t *testing.T) {
	discord := &recordingChannel{name: "discord"}
	slack := &recordingChannel{name: "slack"}
	svc := NewService(discord, slack)

	entry := entity.ManifestEntry{Date: "2026-03-10", Title: "Understanding Raft"}
	svc.Announce(context.Background(), entry)

	require.Len(t, discord.entries, 1)
	require.Len(t, slack.entries, 1)
	assert.Equal(t, "Understanding Raft", discord.entries[0].Title)
}

func TestService_Announce_FailureDoesNotStopOthers(t *testing.T) {
	failing := &recordingChannel{name: "discord", err: errors.New("webhook down")}
	working := &recordingChannel{name: "slack"}
	svc := NewService(failing, working)

	svc.Announce(context.Background(), entity.ManifestEntry{Title: "x"})
	assert.Len(t, working.entries, 1, "remaining channels still run after a failure")
}

func TestNewServiceFromEnv(t *testing.T) {
	t.Run("no webhooks yields noop channel", func(t *testing.T) {
		t.Setenv("DISCORD_WEBHOOK_URL", "")
		t.Setenv("SLACK_WEBHOOK_URL", "")
		svc := NewServiceFromEnv()
		require.Len(t, svc.channels, 1)
		assert.Equal(t, "noop", svc.channels[0].Name())
	})

	t.Run("both webhooks configured", func(t *testing.T) {
		t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.example/webhook")
		t.Setenv("SLACK_WEBHOOK_URL", "https://slack.example/webhook")
		svc := NewServiceFromEnv()
		require.Len(t, svc.channels, 2)
		assert.Equal(t, "discord", svc.channels[0].Name())
		assert.Equal(t, "slack", svc.channels[1].Name())
	})
}
