// Command diagnose_feeds probes every source in a sources.json document and
// reports feed health: HTTP status, item count, and the latest publication
// date. Useful when a source stops contributing articles and you want to
// know whether the feed moved, emptied, or just went quiet.
//
// Usage: go run scripts/diagnose_feeds.go [path/to/sources.json]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mmcdole/gofeed"

	"briefing-agent/internal/domain/entity"
)

type feedDiagnostic struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	URL          string `json:"url"`
	Status       string `json:"status"` // "OK", "FETCH_ERROR", "EMPTY", "SKIPPED"
	ItemCount    int    `json:"item_count"`
	LatestDate   string `json:"latest_date,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	ResponseTime int64  `json:"response_time_ms"`
}

func main() {
	path := "sources.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		os.Exit(1)
	}

	var sources []entity.SourceConfig
	if err := json.Unmarshal(data, &sources); err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", path, err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	parser := gofeed.NewParser()
	parser.Client = client

	results := make([]feedDiagnostic, 0, len(sources))
	for _, src := range sources {
		results = append(results, diagnose(parser, src))
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal results: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	for _, r := range results {
		if r.Status != "OK" && r.Status != "SKIPPED" {
			os.Exit(2)
		}
	}
}

func diagnose(parser *gofeed.Parser, src entity.SourceConfig) feedDiagnostic {
	d := feedDiagnostic{
		Name: src.Name,
		Type: string(src.Type),
		URL:  src.URL,
	}

	// The HN source is an API endpoint, not a feed document.
	if src.Type == entity.SourceTypeHackerNews {
		d.Status = "SKIPPED"
		return d
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	feed, err := parser.ParseURLWithContext(src.URL, ctx)
	d.ResponseTime = time.Since(start).Milliseconds()

	if err != nil {
		d.Status = "FETCH_ERROR"
		d.ErrorMessage = err.Error()
		return d
	}

	d.ItemCount = len(feed.Items)
	if d.ItemCount == 0 {
		d.Status = "EMPTY"
		return d
	}

	d.Status = "OK"
	var latest time.Time
	for _, item := range feed.Items {
		ts := item.PublishedParsed
		if ts == nil {
			ts = item.UpdatedParsed
		}
		if ts != nil && ts.After(latest) {
			latest = *ts
		}
	}
	if !latest.IsZero() {
		d.LatestDate = latest.Format(time.RFC3339)
	}
	return d
}
