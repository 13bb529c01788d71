package discovery

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// Reviewer determines how recently a feed last published.
type Reviewer struct {
	client *http.Client
}

// NewReviewer creates a Reviewer. A nil client gets a default with a 30
// second timeout.
func NewReviewer(client *http.Client) *Reviewer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Reviewer{client: client}
}

// LatestPublication fetches the feed once and returns the newest
// publication time across its items, preferring the published date and
// falling back to the updated date. Returns nil when no item carries a
// usable date.
func (r *Reviewer) LatestPublication(ctx context.Context, feedURL string) (*time.Time, error) {
	fp := gofeed.NewParser()
	fp.Client = r.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %q: %w", feedURL, err)
	}

	var latest *time.Time
	for _, it := range feed.Items {
		date := it.PublishedParsed
		if date == nil {
			date = it.UpdatedParsed
		}
		if date == nil {
			continue
		}
		if latest == nil || date.After(*latest) {
			d := *date
			latest = &d
		}
	}
	return latest, nil
}
