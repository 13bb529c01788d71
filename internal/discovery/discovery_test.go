package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"briefing-agent/internal/domain/entity"
	"briefing-agent/internal/llm"
)

type stubLLM struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubLLM) Name() llm.Provider { return llm.ProviderGemini }
func (s *stubLLM) Model() string      { return "stub-model" }

func (s *stubLLM) Invoke(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

const validRSS = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Engineering Blog</title>
<item><title>Post</title><link>https://example.com/post</link></item>
</channel></rss>`

func TestDiscover_DirectFeedURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, validRSS)
	}))
	defer server.Close()

	stub := &stubLLM{reply: "yes"}
	engine := NewEngine(server.Client(), stub)

	src, err := engine.Discover(context.Background(), server.URL+"/feed.xml", "Engineering Blog")
	require.NoError(t, err)
	require.NotNil(t, src)

	assert.Equal(t, "Engineering Blog", src.Name)
	assert.Equal(t, entity.SourceTypeRSS, src.Type)
	assert.Equal(t, server.URL+"/feed.xml", src.URL)

	require.Len(t, stub.prompts, 1)
	assert.Contains(t, stub.prompts[0], "Engineering Blog", "relevance prompt carries the name")
}

func TestDiscover_DirectFeedFailsRelevance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, validRSS)
	}))
	defer server.Close()

	engine := NewEngine(server.Client(), &stubLLM{reply: "no"})

	src, err := engine.Discover(context.Background(), server.URL, "Spam Blog")
	require.NoError(t, err)
	assert.Nil(t, src, "an irrelevant direct feed is rejected, not retried")
}

func TestDiscover_RelevanceReplyVariants(t *testing.T) {
	engine := NewEngine(nil, nil)

	for reply, want := range map[string]bool{
		"yes":    true,
		" Yes\n": true,
		"YES":    true,
		"no":     false,
		"yes it is a great blog": false,
	} {
		engine.llm = &stubLLM{reply: reply}
		got, err := engine.CheckRelevance(context.Background(), "n", "u", "")
		require.NoError(t, err)
		assert.Equal(t, want, got, "reply %q", reply)
	}
}

func TestDiscover_AlternateLinkConvergence(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head>
<link rel="alternate" type="application/rss+xml" href="/blog/feed.xml">
</head><body>welcome</body></html>`)
	})
	mux.HandleFunc("/blog/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, validRSS)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	engine := NewEngine(server.Client(), &stubLLM{reply: "yes"})

	src, err := engine.Discover(context.Background(), server.URL, "Blog")
	require.NoError(t, err)
	require.NotNil(t, src)
	assert.Equal(t, server.URL+"/blog/feed.xml", src.URL, "relative href resolves to an absolute URL")
}

func TestDiscover_OriginFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/deep/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>no feed links here</body></html>`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head>
<link rel="alternate" type="application/atom+xml" href="/atom.xml">
</head></html>`)
	})
	mux.HandleFunc("/atom.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, validRSS)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	engine := NewEngine(server.Client(), &stubLLM{reply: "yes"})

	src, err := engine.Discover(context.Background(), server.URL+"/deep/article", "Blog")
	require.NoError(t, err)
	require.NotNil(t, src)
	assert.Equal(t, server.URL+"/atom.xml", src.URL, "second attempt starts from the origin")
}

func TestDiscover_CommonSuffixProbe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>nothing declared</body></html>`)
	})
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		if r.Method == http.MethodHead {
			return
		}
		fmt.Fprint(w, validRSS)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	engine := NewEngine(server.Client(), &stubLLM{reply: "yes"})

	src, err := engine.Discover(context.Background(), server.URL, "Blog")
	require.NoError(t, err)
	require.NotNil(t, src)
	assert.Equal(t, server.URL+"/rss", src.URL, "first reachable suffix wins")
}

func TestDiscover_NothingFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	engine := NewEngine(server.Client(), &stubLLM{reply: "yes"})

	src, err := engine.Discover(context.Background(), server.URL, "Ghost Blog")
	require.NoError(t, err)
	assert.Nil(t, src)
}

func TestHeadProbe_NetworkFailureTripsBreaker(t *testing.T) {
	// A closed server makes every probe fail at the network level.
	server := httptest.NewServer(http.NotFoundHandler())
	client := server.Client()
	deadURL := server.URL
	server.Close()

	engine := NewEngine(client, nil)

	for i := 0; i < 8; i++ {
		assert.False(t, engine.headProbe(context.Background(), deadURL),
			"a failing probe is a miss, never an error")
	}
	assert.True(t, engine.probeBreaker.IsOpen(),
		"sustained network failures open the probe breaker")

	// Probes rejected by the open breaker are still plain misses.
	assert.False(t, engine.headProbe(context.Background(), deadURL))
}

func TestLatestPublication(t *testing.T) {
	older := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>
<item><title>a</title><link>https://e.com/a</link><pubDate>%s</pubDate></item>
<item><title>b</title><link>https://e.com/b</link><pubDate>%s</pubDate></item>
</channel></rss>`, older.Format(time.RFC1123Z), newer.Format(time.RFC1123Z))
	}))
	defer server.Close()

	reviewer := NewReviewer(server.Client())
	latest, err := reviewer.LatestPublication(context.Background(), server.URL)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Equal(newer), "newest item date wins")
}

func TestLatestPublication_UpdatedFallback(t *testing.T) {
	updated := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprintf(w, `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom"><title>t</title>
<entry><title>a</title><link href="https://e.com/a"/><updated>%s</updated></entry>
</feed>`, updated.Format(time.RFC3339))
	}))
	defer server.Close()

	reviewer := NewReviewer(server.Client())
	latest, err := reviewer.LatestPublication(context.Background(), server.URL)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Equal(updated))
}

func TestLatestPublication_NoUsableDates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, validRSS)
	}))
	defer server.Close()

	reviewer := NewReviewer(server.Client())
	latest, err := reviewer.LatestPublication(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestLatestPublication_FetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	reviewer := NewReviewer(server.Client())
	_, err := reviewer.LatestPublication(context.Background(), server.URL)
	assert.Error(t, err)
}
