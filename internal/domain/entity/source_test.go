package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		source  SourceConfig
		wantErr bool
	}{
		{
			name:   "valid rss source",
			source: SourceConfig{Name: "Netflix TechBlog", Type: SourceTypeRSS, URL: "https://netflixtechblog.com/feed"},
		},
		{
			name:   "valid atom source",
			source: SourceConfig{Name: "Go Blog", Type: SourceTypeAtom, URL: "https://go.dev/blog/feed.atom"},
		},
		{
			name:   "valid hackernews source",
			source: SourceConfig{Name: "Hacker News", Type: SourceTypeHackerNews, URL: "https://hacker-news.firebaseio.com/v0/topstories.json"},
		},
		{
			name:    "missing name",
			source:  SourceConfig{Type: SourceTypeRSS, URL: "https://example.com/feed"},
			wantErr: true,
		},
		{
			name:    "missing url",
			source:  SourceConfig{Name: "Blog", Type: SourceTypeRSS},
			wantErr: true,
		},
		{
			name:    "unknown type",
			source:  SourceConfig{Name: "Blog", Type: "scraper", URL: "https://example.com"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.source.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSourceConfig_Key(t *testing.T) {
	a := SourceConfig{Name: "Blog", Type: SourceTypeRSS, URL: "https://example.com/feed"}
	b := SourceConfig{Name: "Blog", Type: SourceTypeRSS, URL: "https://example.com/feed"}
	c := SourceConfig{Name: "Blog", Type: SourceTypeAtom, URL: "https://example.com/feed"}

	assert.Equal(t, a.Key(), b.Key(), "structurally equal sources must share a key")
	assert.NotEqual(t, a.Key(), c.Key(), "differing type must change the key")
}

func TestSourceConfig_JSONShape(t *testing.T) {
	data := []byte(`{"name":"Go Blog","type":"atom","url":"https://go.dev/blog/feed.atom"}`)

	var s SourceConfig
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, "Go Blog", s.Name)
	assert.Equal(t, SourceTypeAtom, s.Type)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(out))
}

func TestManifestEntry_OmitsEmptyOptionals(t *testing.T) {
	entry := ManifestEntry{
		Date:           "2026-08-27",
		URL:            "https://storage.googleapis.com/bucket/summaries/2026-08-27.md",
		Title:          "Some Article",
		SummarySnippet: "A snippet",
	}

	out, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "original_url")
	assert.NotContains(t, string(out), "model")
	assert.NotContains(t, string(out), "selected_by")
}
