package entity

import "time"

// Article is a candidate headline fetched from a source during a single run.
// Articles live in memory only; they are never persisted directly.
type Article struct {
	Title       string
	URL         string
	SourceName  string
	PublishedAt time.Time
}
