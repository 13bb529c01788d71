// Package feedsource fetches recent articles from configured sources. It
// parses RSS and Atom feeds with the gofeed library and speaks the
// Hacker News item API directly, with circuit breaker and retry logic
// around every network call.
package feedsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"

	"briefing-agent/internal/domain/entity"
	"briefing-agent/internal/resilience/circuitbreaker"
	"briefing-agent/internal/resilience/retry"
)

const (
	// fetchTimeout bounds a single feed request.
	fetchTimeout = 30 * time.Second

	// maxItemsPerSource caps how many items are considered from one source.
	maxItemsPerSource = 10

	// articleWindow is how far back an item may be published and still
	// count as today's news.
	articleWindow = 24 * time.Hour

	userAgent = "BriefingAgentBot"
)

// Fetcher retrieves recent articles from a configured source. It includes
// circuit breaker and retry logic for improved reliability.
type Fetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	now            func() time.Time
}

// NewFetcher creates a Fetcher. A nil client gets a default with the feed
// fetch timeout applied.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Fetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
		now:            time.Now,
	}
}

// Fetch retrieves the articles published within the last 24 hours from the
// given source, capped at maxItemsPerSource items. The window boundary is
// inclusive: an article published exactly 24 hours ago is kept.
func (f *Fetcher) Fetch(ctx context.Context, source entity.SourceConfig) ([]entity.Article, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}

	var articles []entity.Article

	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, source)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("service", "feed-fetch"),
					slog.String("source", source.Name),
					slog.String("state", f.circuitBreaker.State().String()))
				return err
			}
			return err
		}

		articles = cbResult.([]entity.Article)
		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}
	return articles, nil
}

// doFetch performs the actual fetch without retry or circuit breaker.
func (f *Fetcher) doFetch(ctx context.Context, source entity.SourceConfig) ([]entity.Article, error) {
	cutoff := f.now().Add(-articleWindow)

	switch source.Type {
	case entity.SourceTypeRSS, entity.SourceTypeAtom:
		return f.fetchFeed(ctx, source, cutoff)
	case entity.SourceTypeHackerNews:
		return f.fetchHackerNews(ctx, source, cutoff)
	default:
		return nil, fmt.Errorf("unknown source type %q for source %q", source.Type, source.Name)
	}
}

// withinWindow reports whether a publication time falls inside the article
// window ending at cutoff. The boundary itself is included.
func withinWindow(published, cutoff time.Time) bool {
	return !published.Before(cutoff)
}

// itemDate resolves the publication time of a feed item per source type.
// RSS items must carry a parseable publication date; Atom entries fall back
// to the updated timestamp. Returns the zero time when no usable date exists.
func itemDate(sourceType entity.SourceType, item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if sourceType == entity.SourceTypeAtom && item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

func (f *Fetcher) fetchFeed(ctx context.Context, source entity.SourceConfig, cutoff time.Time) ([]entity.Article, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %q: %w", source.Name, err)
	}

	items := feed.Items
	if len(items) > maxItemsPerSource {
		items = items[:maxItemsPerSource]
	}

	var articles []entity.Article
	skippedDates := 0
	for _, it := range items {
		if it.Title == "" || it.Link == "" {
			continue
		}

		publishedAt := itemDate(source.Type, it)
		if publishedAt.IsZero() {
			skippedDates++
			continue
		}

		if withinWindow(publishedAt, cutoff) {
			articles = append(articles, entity.Article{
				Title:       it.Title,
				URL:         it.Link,
				SourceName:  source.Name,
				PublishedAt: publishedAt,
			})
		}
	}

	if skippedDates > 0 {
		slog.Warn("skipped items with unparseable dates",
			slog.String("source", source.Name),
			slog.Int("skipped", skippedDates))
	}
	slog.Debug("fetched feed articles",
		slog.String("source", source.Name),
		slog.Int("count", len(articles)))

	return articles, nil
}

// hnItem is the subset of the Hacker News item API response we consume.
type hnItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Time  int64  `json:"time"`
	Type  string `json:"type"`
}

func (f *Fetcher) fetchHackerNews(ctx context.Context, source entity.SourceConfig, cutoff time.Time) ([]entity.Article, error) {
	ids, err := f.fetchTopStoryIDs(ctx, source.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch top stories for %q: %w", source.Name, err)
	}

	// Item URLs share the origin of the configured list endpoint.
	origin, err := apiOrigin(source.URL)
	if err != nil {
		return nil, err
	}

	if len(ids) > maxItemsPerSource {
		ids = ids[:maxItemsPerSource]
	}

	var articles []entity.Article
	for _, id := range ids {
		item, err := f.fetchItem(ctx, origin, id)
		if err != nil {
			// One broken story must not sink the whole source.
			slog.Warn("failed to fetch item",
				slog.String("source", source.Name),
				slog.Int64("id", id),
				slog.Any("error", err))
			continue
		}

		if item.Title == "" || item.URL == "" {
			continue
		}

		publishedAt := time.Unix(item.Time, 0).UTC()
		if withinWindow(publishedAt, cutoff) {
			articles = append(articles, entity.Article{
				Title:       item.Title,
				URL:         item.URL,
				SourceName:  source.Name,
				PublishedAt: publishedAt,
			})
		}
	}

	slog.Debug("fetched hackernews articles",
		slog.String("source", source.Name),
		slog.Int("count", len(articles)))

	return articles, nil
}

func (f *Fetcher) fetchTopStoryIDs(ctx context.Context, listURL string) ([]int64, error) {
	body, err := f.getJSON(ctx, listURL)
	if err != nil {
		return nil, err
	}

	var ids []int64
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode story id list: %w", err)
	}
	return ids, nil
}

func (f *Fetcher) fetchItem(ctx context.Context, origin string, id int64) (*hnItem, error) {
	body, err := f.getJSON(ctx, fmt.Sprintf("%s/v0/item/%d.json", origin, id))
	if err != nil {
		return nil, err
	}

	var item hnItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	return &item, nil
}

func (f *Fetcher) getJSON(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Body: resp.Status}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 10<<20))
}

// apiOrigin reduces a URL to its scheme and host.
func apiOrigin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid source url %q", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}
