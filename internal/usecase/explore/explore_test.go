package explore

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"briefing-agent/internal/domain/entity"
	"briefing-agent/internal/infra/objstore"
	"briefing-agent/internal/llm"
)

type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, entity.ErrNotFound)
	}
	return data, nil
}

func (m *memStore) Put(ctx context.Context, key string, data []byte) error {
	m.objects[key] = data
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	if _, ok := m.objects[key]; !ok {
		return fmt.Errorf("%s: %w", key, entity.ErrNotFound)
	}
	delete(m.objects, key)
	return nil
}

func (m *memStore) PublicURL(key string) string {
	return "https://storage.googleapis.com/test-bucket/" + key
}

// stubDiscoverer accepts candidates listed in accepted, mapping seed URL to
// the discovered source.
type stubDiscoverer struct {
	accepted map[string]*entity.SourceConfig
	errs     map[string]error
	seen     []string
}

func (s *stubDiscoverer) Discover(ctx context.Context, seedURL, name string) (*entity.SourceConfig, error) {
	s.seen = append(s.seen, seedURL)
	if err, ok := s.errs[seedURL]; ok {
		return nil, err
	}
	return s.accepted[seedURL], nil
}

// stubFreshness maps feed URL to latest publication time.
type stubFreshness struct {
	dates map[string]*time.Time
	errs  map[string]error
}

func (s *stubFreshness) LatestPublication(ctx context.Context, feedURL string) (*time.Time, error) {
	if err, ok := s.errs[feedURL]; ok {
		return nil, err
	}
	return s.dates[feedURL], nil
}

type stubLLM struct {
	reply string
	err   error
	calls int
}

func (s *stubLLM) Name() llm.Provider { return llm.ProviderGemini }
func (s *stubLLM) Model() string      { return "stub-model" }

func (s *stubLLM) Invoke(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.reply, s.err
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

func fresh() *time.Time { return timePtr(testNow.Add(-10 * 24 * time.Hour)) }
func stale() *time.Time { return timePtr(testNow.Add(-120 * 24 * time.Hour)) }

func seedStore(t *testing.T, store *memStore, key string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), key, data))
}

func baseSources() []entity.SourceConfig {
	return []entity.SourceConfig{
		{Name: "go blog", Type: entity.SourceTypeRSS, URL: "https://go.dev/feed"},
		{Name: "hackernews", Type: entity.SourceTypeHackerNews, URL: "https://hn.example/v0/topstories.json"},
	}
}

func allFresh() *stubFreshness {
	return &stubFreshness{dates: map[string]*time.Time{
		"https://go.dev/feed": fresh(),
	}}
}

func newTestService(store *memStore, d Discoverer, f FreshnessChecker, l llm.Client) *Service {
	svc := NewService(store, d, f, l, nil)
	svc.now = func() time.Time { return testNow }
	return svc
}

func loadRoster(t *testing.T, store *memStore) []entity.SourceConfig {
	t.Helper()
	data, err := store.Get(context.Background(), objstore.SourcesKey)
	require.NoError(t, err)
	var sources []entity.SourceConfig
	require.NoError(t, json.Unmarshal(data, &sources))
	return sources
}

func TestRun_UserCandidateAccepted(t *testing.T) {
	store := newMemStore()
	seedStore(t, store, objstore.SourcesKey, baseSources())
	seedStore(t, store, objstore.UserCandidatesKey, []entity.Candidate{
		{Name: "Netflix TechBlog", URL: "https://netflixtechblog.com"},
	})

	discovered := &entity.SourceConfig{
		Name: "Netflix TechBlog", Type: entity.SourceTypeRSS, URL: "https://netflixtechblog.com/feed",
	}
	d := &stubDiscoverer{accepted: map[string]*entity.SourceConfig{
		"https://netflixtechblog.com": discovered,
	}}
	f := allFresh()
	f.dates["https://netflixtechblog.com/feed"] = fresh()
	llmStub := &stubLLM{}

	svc := newTestService(store, d, f, llmStub)
	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.SourcesAdded)
	assert.True(t, result.Updated)
	assert.Equal(t, 0, llmStub.calls, "no scouting when a user candidate was added")

	// Candidates document is consumed.
	_, err = store.Get(context.Background(), objstore.UserCandidatesKey)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	roster := loadRoster(t, store)
	want := []entity.SourceConfig{
		{Name: "Netflix TechBlog", Type: entity.SourceTypeRSS, URL: "https://netflixtechblog.com/feed"},
		{Name: "go blog", Type: entity.SourceTypeRSS, URL: "https://go.dev/feed"},
		{Name: "hackernews", Type: entity.SourceTypeHackerNews, URL: "https://hn.example/v0/topstories.json"},
	}
	if diff := cmp.Diff(want, roster); diff != "" {
		t.Errorf("roster mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_DuplicateUserCandidateSkipped(t *testing.T) {
	store := newMemStore()
	seedStore(t, store, objstore.SourcesKey, baseSources())
	seedStore(t, store, objstore.UserCandidatesKey, []entity.Candidate{
		{Name: "go blog", URL: "https://go.dev"},
	})

	d := &stubDiscoverer{}
	svc := newTestService(store, d, allFresh(), &stubLLM{reply: "[]"})

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.SourcesAdded)
	assert.Empty(t, d.seen, "duplicates are not investigated")
}

func TestRun_SuggestionsWhenNoUserCandidates(t *testing.T) {
	store := newMemStore()
	seedStore(t, store, objstore.SourcesKey, baseSources())

	suggested := &entity.SourceConfig{
		Name: "Dropbox Tech", Type: entity.SourceTypeRSS, URL: "https://dropbox.tech/feed",
	}
	d := &stubDiscoverer{accepted: map[string]*entity.SourceConfig{
		"https://dropbox.tech": suggested,
	}}
	f := allFresh()
	f.dates["https://dropbox.tech/feed"] = fresh()

	llmStub := &stubLLM{reply: "```json\n[{\"name\": \"Dropbox Tech\", \"url\": \"https://dropbox.tech\"}]\n```"}

	svc := newTestService(store, d, f, llmStub)
	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, llmStub.calls)
	assert.Equal(t, 1, result.SourcesAdded, "fenced JSON reply is parsed")

	roster := loadRoster(t, store)
	assert.Len(t, roster, 3)
}

func TestRun_UnparsableSuggestionsRecovered(t *testing.T) {
	store := newMemStore()
	seedStore(t, store, objstore.SourcesKey, baseSources())

	svc := newTestService(store, &stubDiscoverer{}, allFresh(), &stubLLM{reply: "I suggest some blogs!"})
	result, err := svc.Run(context.Background())
	require.NoError(t, err, "garbage suggestions never fail the run")
	assert.Equal(t, 0, result.SourcesAdded)
	assert.False(t, result.Updated)
}

func TestRun_PrunesStaleSources(t *testing.T) {
	store := newMemStore()
	seedStore(t, store, objstore.SourcesKey, []entity.SourceConfig{
		{Name: "fresh blog", Type: entity.SourceTypeRSS, URL: "https://fresh.example/feed"},
		{Name: "stale blog", Type: entity.SourceTypeRSS, URL: "https://stale.example/feed"},
		{Name: "broken blog", Type: entity.SourceTypeRSS, URL: "https://broken.example/feed"},
		{Name: "dateless blog", Type: entity.SourceTypeRSS, URL: "https://dateless.example/feed"},
		{Name: "hackernews", Type: entity.SourceTypeHackerNews, URL: "https://hn.example/v0/topstories.json"},
	})

	f := &stubFreshness{
		dates: map[string]*time.Time{
			"https://fresh.example/feed":    fresh(),
			"https://stale.example/feed":    stale(),
			"https://dateless.example/feed": nil,
		},
		errs: map[string]error{
			"https://broken.example/feed": fmt.Errorf("connection refused"),
		},
	}

	svc := newTestService(store, &stubDiscoverer{}, f, &stubLLM{reply: "[]"})
	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.SourcesRemoved)
	assert.True(t, result.Updated)

	roster := loadRoster(t, store)
	require.Len(t, roster, 2)
	assert.Equal(t, "fresh blog", roster[0].Name)
	assert.Equal(t, "hackernews", roster[1].Name, "hackernews is exempt from freshness review")
}

func TestRun_NoChangesNoWrite(t *testing.T) {
	store := newMemStore()
	seedStore(t, store, objstore.SourcesKey, baseSources())
	original := store.objects[objstore.SourcesKey]

	svc := newTestService(store, &stubDiscoverer{}, allFresh(), &stubLLM{reply: "[]"})
	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Updated)
	assert.Equal(t, string(original), string(store.objects[objstore.SourcesKey]),
		"document untouched when the roster is unchanged")
}

func TestRun_DiscoveryErrorSkipsCandidate(t *testing.T) {
	store := newMemStore()
	seedStore(t, store, objstore.SourcesKey, baseSources())
	seedStore(t, store, objstore.UserCandidatesKey, []entity.Candidate{
		{Name: "Broken", URL: "https://broken.example"},
		{Name: "Working", URL: "https://working.example"},
	})

	working := &entity.SourceConfig{
		Name: "Working", Type: entity.SourceTypeRSS, URL: "https://working.example/feed",
	}
	d := &stubDiscoverer{
		accepted: map[string]*entity.SourceConfig{"https://working.example": working},
		errs:     map[string]error{"https://broken.example": fmt.Errorf("boom")},
	}
	f := allFresh()
	f.dates["https://working.example/feed"] = fresh()

	svc := newTestService(store, d, f, &stubLLM{})
	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.SourcesAdded, "one candidate failing does not block the other")
}

func TestRun_MissingSourcesIsError(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &stubDiscoverer{}, &stubFreshness{}, &stubLLM{})

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  int
	}{
		{"bare json", `[{"name":"a","url":"https://a"}]`, 1},
		{"json fence", "```json\n[{\"name\":\"a\",\"url\":\"https://a\"},{\"name\":\"b\",\"url\":\"https://b\"}]\n```", 2},
		{"plain fence", "```\n[{\"name\":\"a\",\"url\":\"https://a\"}]\n```", 1},
		{"empty array", `[]`, 0},
		{"garbage", "here are my recommendations", 0},
		{"empty reply", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, parseSuggestions(tt.reply), tt.want)
		})
	}
}

func TestSortedSources(t *testing.T) {
	roster := map[string]entity.SourceConfig{}
	for _, src := range []entity.SourceConfig{
		{Name: "zeta", Type: entity.SourceTypeRSS, URL: "https://z"},
		{Name: "alpha", Type: entity.SourceTypeRSS, URL: "https://b"},
		{Name: "alpha", Type: entity.SourceTypeAtom, URL: "https://a"},
	} {
		roster[src.Key()] = src
	}

	got := sortedSources(roster)
	require.Len(t, got, 3)
	assert.Equal(t, entity.SourceTypeAtom, got[0].Type, "name tie broken by type")
	assert.Equal(t, entity.SourceTypeRSS, got[1].Type)
	assert.Equal(t, "zeta", got[2].Name)
}
