// Package discovery locates the feed behind a candidate URL and validates
// that the source is worth following. Candidates arrive as either a direct
// feed URL or a website homepage; the engine tries the URL itself, the
// page's alternate-link declarations, and finally a set of conventional
// feed paths.
package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"briefing-agent/internal/domain/entity"
	"briefing-agent/internal/llm"
	"briefing-agent/internal/resilience/circuitbreaker"
)

const (
	// discoveryAttempts bounds the GET loop: the candidate URL itself, then
	// its bare origin.
	discoveryAttempts = 2

	// maxSampleRunes caps how much feed content is embedded in the
	// relevance prompt.
	maxSampleRunes = 2000

	// maxBodyBytes caps how much of a candidate page is read.
	maxBodyBytes = 10 << 20

	relevancePromptTemplate = "Given the blog titled '%s' at URL '%s', and a sample of its content: '%s'.\n\nDoes this source consistently publish high-quality, technically deep content relevant to a senior software engineer in 2025?\n\nRespond ONLY with 'yes' or 'no'."
)

// commonFeedSuffixes are probed against the candidate's origin as a last
// resort.
var commonFeedSuffixes = []string{"/feed", "/rss", "/atom.xml", "/feed.xml", "/rss.xml"}

// Engine discovers and validates feeds for candidate sources.
type Engine struct {
	client       *http.Client
	llm          llm.Client
	probeBreaker *circuitbreaker.CircuitBreaker
}

// NewEngine creates a discovery engine. A nil client gets a default with a
// 30 second timeout.
func NewEngine(client *http.Client, llmClient llm.Client) *Engine {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Engine{
		client:       client,
		llm:          llmClient,
		probeBreaker: circuitbreaker.New(circuitbreaker.FeedProbeConfig()),
	}
}

// Discover resolves the candidate URL to a validated feed source. It
// returns nil without error when no relevant feed could be found; errors
// are reserved for failures that make the verdict unknowable (the initial
// GET, or the relevance check itself).
func (e *Engine) Discover(ctx context.Context, seedURL, name string) (*entity.SourceConfig, error) {
	currentURL := seedURL

	for attempt := 0; attempt < discoveryAttempts; attempt++ {
		finalURL, contentType, body, err := e.fetchPage(ctx, currentURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch candidate %q: %w", currentURL, err)
		}

		// The URL may already be the feed.
		if looksLikeFeed(contentType) && parsesAsFeed(body) {
			ok, err := e.CheckRelevance(ctx, name, finalURL, sample(body))
			if err != nil {
				return nil, err
			}
			if ok {
				return &entity.SourceConfig{Name: name, Type: entity.SourceTypeRSS, URL: finalURL}, nil
			}
			return nil, nil
		}

		// Otherwise scan the HTML for declared alternate feeds.
		src, err := e.scanAlternateLinks(ctx, name, finalURL, body)
		if err != nil {
			return nil, err
		}
		if src != nil {
			return src, nil
		}

		// Fall back to the bare origin for the second pass.
		origin, originErr := pageOrigin(currentURL)
		if originErr != nil || currentURL == origin {
			break
		}
		currentURL = origin
	}

	return e.probeCommonSuffixes(ctx, seedURL, name)
}

// CheckRelevance asks the provider whether the source is worth following.
// The verdict is positive only for a bare "yes" reply.
func (e *Engine) CheckRelevance(ctx context.Context, name, feedURL, contentSample string) (bool, error) {
	prompt := fmt.Sprintf(relevancePromptTemplate, name, feedURL, contentSample)
	reply, err := e.llm.Invoke(ctx, prompt)
	if err != nil {
		return false, fmt.Errorf("relevance check failed for %q: %w", name, err)
	}
	return strings.ToLower(strings.TrimSpace(reply)) == "yes", nil
}

// fetchPage GETs a URL and returns the final post-redirect URL, the
// content type, and the body.
func (e *Engine) fetchPage(ctx context.Context, rawURL string) (finalURL, contentType, body string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", "", err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", "", "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", "", "", err
	}

	finalURL = rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return finalURL, resp.Header.Get("Content-Type"), string(data), nil
}

// scanAlternateLinks searches an HTML document for rel=alternate feed
// declarations, resolves them against the page URL, and validates the
// first reachable, relevant one.
func (e *Engine) scanAlternateLinks(ctx context.Context, name, pageURL, body string) (*entity.SourceConfig, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, nil
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, nil
	}

	var candidates []string
	doc.Find(`link[rel="alternate"]`).Each(func(_ int, s *goquery.Selection) {
		linkType, _ := s.Attr("type")
		if linkType != "application/rss+xml" && linkType != "application/atom+xml" {
			return
		}
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		candidates = append(candidates, resolved.String())
	})

	for _, feedURL := range candidates {
		if !e.headProbe(ctx, feedURL) {
			continue
		}
		ok, err := e.CheckRelevance(ctx, name, feedURL, "")
		if err != nil {
			return nil, err
		}
		if ok {
			return &entity.SourceConfig{Name: name, Type: entity.SourceTypeRSS, URL: feedURL}, nil
		}
	}
	return nil, nil
}

// probeCommonSuffixes tries the conventional feed paths on the candidate's
// origin.
func (e *Engine) probeCommonSuffixes(ctx context.Context, seedURL, name string) (*entity.SourceConfig, error) {
	origin, err := pageOrigin(seedURL)
	if err != nil {
		return nil, nil
	}

	for _, suffix := range commonFeedSuffixes {
		candidate := origin + suffix
		if !e.headProbe(ctx, candidate) {
			continue
		}
		ok, err := e.CheckRelevance(ctx, name, candidate, "")
		if err != nil {
			return nil, err
		}
		if ok {
			return &entity.SourceConfig{Name: name, Type: entity.SourceTypeRSS, URL: candidate}, nil
		}
	}
	return nil, nil
}

// headProbe reports whether a HEAD request to the URL succeeds. Network
// errors count against the probe circuit breaker and are logged and
// treated as a miss, never a discovery failure.
func (e *Engine) headProbe(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}

	cbResult, err := e.probeBreaker.Execute(func() (interface{}, error) {
		return e.client.Do(req)
	})
	if err != nil {
		slog.Warn("feed probe failed",
			slog.String("url", rawURL),
			slog.String("circuit", e.probeBreaker.State().String()),
			slog.Any("error", err))
		return false
	}

	resp := cbResult.(*http.Response)
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// looksLikeFeed reports whether a content type plausibly carries a feed.
func looksLikeFeed(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "xml") || strings.Contains(ct, "rss") || strings.Contains(ct, "atom")
}

// parsesAsFeed reports whether the body is a well-formed RSS or Atom feed.
func parsesAsFeed(body string) bool {
	_, err := gofeed.NewParser().ParseString(body)
	return err == nil
}

// sample truncates feed content for embedding in the relevance prompt.
func sample(body string) string {
	runes := []rune(body)
	if len(runes) > maxSampleRunes {
		runes = runes[:maxSampleRunes]
	}
	return string(runes)
}

// pageOrigin reduces a URL to scheme://host.
func pageOrigin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid url %q", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}
