// Package briefing orchestrates the daily run: collect today's articles
// from every configured source, have the primary provider pick the best
// one, summarize it with every enabled provider, and publish the summaries
// plus an updated manifest to object storage.
package briefing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"briefing-agent/internal/domain/entity"
	"briefing-agent/internal/infra/objstore"
	"briefing-agent/internal/llm"
	"briefing-agent/internal/usecase/selection"
)

const (
	// maxArticleRunes caps how much extracted article text goes into the
	// summary prompt.
	maxArticleRunes = 50000

	// snippetRunes is the length of the manifest's summary preview.
	snippetRunes = 100

	summaryPromptTemplate = "Please summarize the following software engineering article in a compact and educational format. Focus on key takeaways, core concepts, and why it matters to a software engineer. Ignore any promotional or fluff content.\n\nArticle Source: %s\nTitle: %s\nContent: %s"

	footerTemplate = "\n\n---\n\n**Original article:** [%s](%s)\n\n*Summarized by %s · Selected by %s*"
)

// FeedFetcher collects recent articles from one source.
type FeedFetcher interface {
	Fetch(ctx context.Context, source entity.SourceConfig) ([]entity.Article, error)
}

// ContentFetcher downloads an article page and extracts its readable text.
type ContentFetcher interface {
	FetchContent(ctx context.Context, url string) (string, error)
}

// Notifier announces a published briefing. Implementations must treat
// delivery as best effort; the run never fails on notification errors.
type Notifier interface {
	Announce(ctx context.Context, entry entity.ManifestEntry)
}

// MetricsRecorder records run-level counters.
type MetricsRecorder interface {
	RecordArticlesCollected(count int)
	RecordSummaryPublished(provider string)
}

// Service runs the daily briefing pipeline.
type Service struct {
	store    objstore.Store
	feeds    FeedFetcher
	content  ContentFetcher
	registry *llm.Registry
	notifier Notifier
	metrics  MetricsRecorder
	now      func() time.Time
}

// NewService wires the daily pipeline. notifier and metrics may be nil.
func NewService(store objstore.Store, feeds FeedFetcher, content ContentFetcher, registry *llm.Registry, notifier Notifier, metrics MetricsRecorder) *Service {
	return &Service{
		store:    store,
		feeds:    feeds,
		content:  content,
		registry: registry,
		notifier: notifier,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Result describes what a run accomplished.
type Result struct {
	// NothingToDo is set when no source produced an article today. The run
	// is still considered successful.
	NothingToDo bool

	// ArticlesCollected is the number of fresh articles across all sources.
	ArticlesCollected int

	// SelectedTitle is the title of the chosen article.
	SelectedTitle string

	// SummariesPublished is the number of provider summaries uploaded.
	SummariesPublished int
}

// Run executes one daily briefing.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	sources, err := s.loadSources(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("loaded sources", slog.Int("count", len(sources)))

	articles := s.collectArticles(ctx, sources)
	if s.metrics != nil {
		s.metrics.RecordArticlesCollected(len(articles))
	}
	if len(articles) == 0 {
		slog.Warn("no recent articles found from any source")
		return &Result{NothingToDo: true}, nil
	}
	slog.Info("articles collected", slog.Int("total", len(articles)))

	primary := s.registry.Primary()
	slog.Info("selecting best article", slog.String("provider", string(primary.Name())))

	idx, err := selection.Select(ctx, primary, articles)
	if err != nil {
		return nil, err
	}
	best := articles[idx]
	slog.Info("selected best article",
		slog.String("title", best.Title),
		slog.String("url", best.URL),
		slog.String("source", best.SourceName))

	articleText := s.fetchArticleText(ctx, best)
	prompt := fmt.Sprintf(summaryPromptTemplate, best.SourceName, best.Title, articleText)

	today := s.now().UTC().Format(entity.DateLayout)
	entries := s.publishSummaries(ctx, prompt, best, primary, today)
	if len(entries) == 0 {
		return nil, fmt.Errorf("no summaries were generated successfully")
	}

	if err := s.updateManifest(ctx, entries, today); err != nil {
		return nil, err
	}
	slog.Info("manifest updated", slog.String("date", today))

	if s.notifier != nil {
		s.notifier.Announce(ctx, entries[0])
	}

	return &Result{
		ArticlesCollected:  len(articles),
		SelectedTitle:      best.Title,
		SummariesPublished: len(entries),
	}, nil
}

func (s *Service) loadSources(ctx context.Context) ([]entity.SourceConfig, error) {
	data, err := s.store.Get(ctx, objstore.SourcesKey)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, fmt.Errorf("source configuration missing: %w", err)
		}
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}

	var sources []entity.SourceConfig
	if err := json.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", objstore.SourcesKey, err)
	}
	return sources, nil
}

// collectArticles fetches every source sequentially. A failing source is
// logged and skipped so one dead feed cannot sink the run.
func (s *Service) collectArticles(ctx context.Context, sources []entity.SourceConfig) []entity.Article {
	var all []entity.Article
	for _, source := range sources {
		slog.Debug("fetching from source", slog.String("source", source.Name))
		articles, err := s.feeds.Fetch(ctx, source)
		if err != nil {
			slog.Warn("failed to fetch from source",
				slog.String("source", source.Name),
				slog.Any("error", err))
			continue
		}
		slog.Info("found articles",
			slog.String("source", source.Name),
			slog.Int("count", len(articles)))
		all = append(all, articles...)
	}
	return all
}

// fetchArticleText scrapes the selected article. Scrape failure falls back
// to the title and URL so summarization can still proceed.
func (s *Service) fetchArticleText(ctx context.Context, article entity.Article) string {
	text, err := s.content.FetchContent(ctx, article.URL)
	if err != nil {
		slog.Warn("failed to fetch article content, using title only",
			slog.Any("error", err))
		text = fmt.Sprintf("Title: %s, URL: %s", article.Title, article.URL)
	}
	return truncateRunes(text, maxArticleRunes)
}

// publishSummaries generates and uploads one summary per enabled provider.
// Provider or upload failures skip that provider only.
func (s *Service) publishSummaries(ctx context.Context, prompt string, best entity.Article, primary llm.Client, today string) []entity.ManifestEntry {
	clients := s.registry.Enabled()
	singleProvider := len(clients) == 1

	var entries []entity.ManifestEntry
	for _, client := range clients {
		provider := string(client.Name())
		slog.Info("generating summary", slog.String("provider", provider))

		summary, err := client.Invoke(ctx, prompt)
		if err != nil {
			slog.Error("failed to generate summary",
				slog.String("provider", provider),
				slog.Any("error", err))
			continue
		}

		// Snippet comes from the bare summary, before the footer.
		snippet := truncateRunes(summary, snippetRunes)
		rendered := summary + fmt.Sprintf(footerTemplate, best.Title, best.URL, client.Model(), primary.Model())

		key := summaryKey(provider, today, singleProvider)
		if err := s.store.Put(ctx, key, []byte(rendered)); err != nil {
			slog.Error("failed to upload summary",
				slog.String("provider", provider),
				slog.String("key", key),
				slog.Any("error", err))
			continue
		}
		slog.Info("summary uploaded",
			slog.String("provider", provider),
			slog.String("key", key))

		if s.metrics != nil {
			s.metrics.RecordSummaryPublished(provider)
		}

		entries = append(entries, entity.ManifestEntry{
			Date:           today,
			URL:            s.store.PublicURL(key),
			Title:          best.Title,
			SummarySnippet: snippet,
			OriginalURL:    best.URL,
			Model:          client.Model(),
			SelectedBy:     primary.Model(),
		})
	}
	return entries
}

// updateManifest folds the new entries into manifest.json: today's existing
// entries are dropped, the new ones are prepended in order, history is
// preserved. A missing manifest starts fresh; a corrupt one is an error so
// history is never silently clobbered.
func (s *Service) updateManifest(ctx context.Context, newEntries []entity.ManifestEntry, today string) error {
	var manifest []entity.ManifestEntry

	data, err := s.store.Get(ctx, objstore.ManifestKey)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &manifest); err != nil {
			return fmt.Errorf("existing manifest is corrupt: %w", err)
		}
	case errors.Is(err, entity.ErrNotFound):
		slog.Info("no existing manifest found, creating new one")
	default:
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	manifest = replaceToday(manifest, newEntries, today)

	out, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := s.store.Put(ctx, objstore.ManifestKey, out); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// replaceToday removes all existing entries for the given date and prepends
// the new ones, preserving their order and the rest of the history.
func replaceToday(existing, newEntries []entity.ManifestEntry, date string) []entity.ManifestEntry {
	kept := make([]entity.ManifestEntry, 0, len(existing)+len(newEntries))
	kept = append(kept, newEntries...)
	for _, e := range existing {
		if e.Date != date {
			kept = append(kept, e)
		}
	}
	return kept
}

// summaryKey returns the object key for a provider's summary. With a single
// enabled provider the legacy flat layout is used.
func summaryKey(provider, date string, singleProvider bool) string {
	if singleProvider {
		return fmt.Sprintf("summaries/%s.md", date)
	}
	return fmt.Sprintf("summaries/%s/%s.md", provider, date)
}

// truncateRunes trims s to at most n runes without splitting a multi-byte
// character.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
