// Package explore maintains the source roster: it validates user-submitted
// feed candidates, asks an LLM to scout new engineering blogs when there is
// nothing user-submitted to process, prunes sources that have gone stale,
// and persists the updated roster.
package explore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"briefing-agent/internal/domain/entity"
	"briefing-agent/internal/infra/objstore"
	"briefing-agent/internal/llm"
)

const (
	// stalenessWindow is how long a source may go without publishing
	// before it is pruned.
	stalenessWindow = 90 * 24 * time.Hour

	suggestionPromptTemplate = "You are a Software Engineering Resource Scout. Your goal is to find high-quality, technical engineering blogs that publish regular, deep content.\n\nCurrent sources include: %s\n\nPlease recommend 3 NEW, different engineering blogs (company engineering blogs or high-profile individual blogs) that are NOT in this list.\nFor each recommendation, provide its RSS/Atom feed URL if you know it directly. Otherwise, provide the main website URL.\nReturn ONLY a valid JSON array of objects, where each object has 'name' and 'url'.\nExample: [{\"name\": \"Netflix TechBlog\", \"url\": \"https://netflixtechblog.com/feed\"}]"
)

// Discoverer resolves a candidate URL to a validated feed source, or nil
// when none is found.
type Discoverer interface {
	Discover(ctx context.Context, seedURL, name string) (*entity.SourceConfig, error)
}

// FreshnessChecker reports a feed's most recent publication time.
type FreshnessChecker interface {
	LatestPublication(ctx context.Context, feedURL string) (*time.Time, error)
}

// MetricsRecorder records roster change counters.
type MetricsRecorder interface {
	RecordSourceAdded()
	RecordSourceRemoved()
}

// Service runs the explorer pipeline.
type Service struct {
	store      objstore.Store
	discoverer Discoverer
	freshness  FreshnessChecker
	llm        llm.Client
	metrics    MetricsRecorder
	now        func() time.Time
}

// NewService wires the explorer. metrics may be nil.
func NewService(store objstore.Store, discoverer Discoverer, freshness FreshnessChecker, llmClient llm.Client, metrics MetricsRecorder) *Service {
	return &Service{
		store:      store,
		discoverer: discoverer,
		freshness:  freshness,
		llm:        llmClient,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Result describes what a run changed.
type Result struct {
	SourcesAdded   int
	SourcesRemoved int
	TotalSources   int
	Updated        bool
}

// Run executes one explorer pass.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	loaded, err := s.loadSources(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("loaded sources", slog.Int("count", len(loaded)))

	roster := make(map[string]entity.SourceConfig, len(loaded))
	for _, src := range loaded {
		roster[src.Key()] = src
	}

	added, err := s.processUserCandidates(ctx, roster)
	if err != nil {
		return nil, err
	}

	// Scouting only runs when no user candidate made it in, so a roster
	// that just grew is not grown again in the same pass.
	if added == 0 {
		added += s.processSuggestions(ctx, roster)
	}

	removed := s.pruneStaleSources(ctx, roster)

	result := &Result{
		SourcesAdded:   added,
		SourcesRemoved: removed,
		TotalSources:   len(roster),
	}

	final := sortedSources(roster)
	if !sameSources(loaded, final) {
		if err := s.saveSources(ctx, final); err != nil {
			return nil, err
		}
		result.Updated = true
		slog.Info("sources updated", slog.Int("total", len(final)))
	} else {
		slog.Info("no changes to sources")
	}

	return result, nil
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

// processUserCandidates validates each user-submitted candidate and inserts
// the accepted ones. The candidates document is consumed: it is deleted
// once processed.
func (s *Service) processUserCandidates(ctx context.Context, roster map[string]entity.SourceConfig) (int, error) {
	data, err := s.store.Get(ctx, objstore.UserCandidatesKey)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			slog.Info("no user candidates found")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to load user candidates: %w", err)
	}

	var candidates []entity.Candidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", objstore.UserCandidatesKey, err)
	}
	slog.Info("processing user candidates", slog.Int("count", len(candidates)))

	added := s.investigateCandidates(ctx, roster, candidates, "user")

	if err := s.store.Delete(ctx, objstore.UserCandidatesKey); err != nil {
		return added, fmt.Errorf("failed to delete processed candidates: %w", err)
	}
	return added, nil
}

// processSuggestions asks the provider to scout new blogs. A reply that
// fails to parse is recovered as an empty list: scouting is opportunistic
// and must not fail the run.
func (s *Service) processSuggestions(ctx context.Context, roster map[string]entity.SourceConfig) int {
	names := make([]string, 0, len(roster))
	for _, src := range roster {
		names = append(names, src.Name)
	}
	sort.Strings(names)

	slog.Info("asking provider for new source recommendations")
	reply, err := s.llm.Invoke(ctx, fmt.Sprintf(suggestionPromptTemplate, strings.Join(names, ", ")))
	if err != nil {
		slog.Warn("suggestion request failed", slog.Any("error", err))
		return 0
	}

	suggestions := parseSuggestions(reply)
	slog.Info("provider recommended sources", slog.Int("count", len(suggestions)))

	return s.investigateCandidates(ctx, roster, suggestions, "suggested")
}

// investigateCandidates runs discovery on each candidate not already on the
// roster. Discovery errors skip the candidate only.
func (s *Service) investigateCandidates(ctx context.Context, roster map[string]entity.SourceConfig, candidates []entity.Candidate, origin string) int {
	added := 0
	for _, cand := range candidates {
		if candidateExists(roster, cand) {
			slog.Info("candidate already exists, skipping",
				slog.String("origin", origin),
				slog.String("name", cand.Name))
			continue
		}

		slog.Info("investigating candidate",
			slog.String("origin", origin),
			slog.String("name", cand.Name),
			slog.String("url", cand.URL))

		src, err := s.discoverer.Discover(ctx, cand.URL, cand.Name)
		if err != nil {
			slog.Error("failed to process candidate",
				slog.String("name", cand.Name),
				slog.Any("error", err))
			continue
		}
		if src == nil {
			slog.Info("candidate invalid or irrelevant, skipping",
				slog.String("name", cand.Name))
			continue
		}

		if _, ok := roster[src.Key()]; ok {
			slog.Info("validated source already exists, skipping",
				slog.String("name", src.Name))
			continue
		}

		slog.Info("candidate accepted",
			slog.String("name", src.Name),
			slog.String("url", src.URL))
		roster[src.Key()] = *src
		added++
		if s.metrics != nil {
			s.metrics.RecordSourceAdded()
		}
	}
	return added
}

// pruneStaleSources drops every non-hackernews source whose latest
// publication is older than the staleness window, could not be determined,
// or whose feed failed to fetch.
func (s *Service) pruneStaleSources(ctx context.Context, roster map[string]entity.SourceConfig) int {
	threshold := s.now().Add(-stalenessWindow)
	removed := 0

	for key, src := range roster {
		if src.Type == entity.SourceTypeHackerNews {
			continue
		}

		slog.Debug("checking freshness", slog.String("source", src.Name))
		latest, err := s.freshness.LatestPublication(ctx, src.URL)

		switch {
		case err != nil:
			slog.Warn("freshness check failed, removing source",
				slog.String("source", src.Name),
				slog.Any("error", err))
		case latest == nil:
			slog.Warn("could not determine freshness, removing source",
				slog.String("source", src.Name))
		case latest.After(threshold):
			slog.Debug("source is fresh",
				slog.String("source", src.Name),
				slog.String("last_post", latest.Format(entity.DateLayout)))
			continue
		default:
			slog.Info("source is stale, removing",
				slog.String("source", src.Name),
				slog.String("last_post", latest.Format(entity.DateLayout)))
		}

		delete(roster, key)
		removed++
		if s.metrics != nil {
			s.metrics.RecordSourceRemoved()
		}
	}
	return removed
}

func (s *Service) saveSources(ctx context.Context, sources []entity.SourceConfig) error {
	data, err := json.MarshalIndent(sources, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sources: %w", err)
	}
	if err := s.store.Put(ctx, objstore.SourcesKey, data); err != nil {
		return fmt.Errorf("failed to write sources: %w", err)
	}
	return nil
}

// parseSuggestions extracts the candidate list from a provider reply,
// stripping markdown code fences. Unparsable JSON yields an empty list.
func parseSuggestions(reply string) []entity.Candidate {
	clean := strings.TrimSpace(reply)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var suggestions []entity.Candidate
	if err := json.Unmarshal([]byte(clean), &suggestions); err != nil {
		slog.Warn("failed to parse suggestions, continuing without",
			slog.Any("error", err),
			slog.String("raw", clean))
		return nil
	}
	return suggestions
}

// candidateExists reports whether a candidate duplicates a roster entry by
// name or URL.
func candidateExists(roster map[string]entity.SourceConfig, cand entity.Candidate) bool {
	for _, src := range roster {
		if src.Name == cand.Name || src.URL == cand.URL {
			return true
		}
	}
	return false
}

// sortedSources renders the roster in canonical order: by name, then type,
// then URL.
func sortedSources(roster map[string]entity.SourceConfig) []entity.SourceConfig {
	sources := make([]entity.SourceConfig, 0, len(roster))
	for _, src := range roster {
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].Name != sources[j].Name {
			return sources[i].Name < sources[j].Name
		}
		if sources[i].Type != sources[j].Type {
			return sources[i].Type < sources[j].Type
		}
		return sources[i].URL < sources[j].URL
	})
	return sources
}

// sameSources reports whether two rosters contain the same sources,
// ignoring order.
func sameSources(a, b []entity.SourceConfig) bool {
	if len(a) != len(b) {
		return false
	}
	keys := make(map[string]struct{}, len(a))
	for _, src := range a {
		keys[src.Key()] = struct{}{}
	}
	for _, src := range b {
		if _, ok := keys[src.Key()]; !ok {
			return false
		}
	}
	return true
}
