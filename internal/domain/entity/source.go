// Package entity defines the core domain types shared across the pipeline:
// feed sources, fetched articles, manifest entries, and candidate feeds.
package entity

import "fmt"

// SourceType identifies how a source's items are fetched and parsed.
type SourceType string

const (
	// SourceTypeRSS is an RSS 2.0 feed.
	SourceTypeRSS SourceType = "rss"

	// SourceTypeAtom is an Atom feed.
	SourceTypeAtom SourceType = "atom"

	// SourceTypeHackerNews is the Hacker News top-stories API.
	// Sources of this type are exempt from freshness review.
	SourceTypeHackerNews SourceType = "hackernews"
)

// SourceConfig describes a single feed source. It is the element type of the
// durable config/sources.json document.
//
// Identity is structural: two SourceConfig values are the same source iff
// name, type, and url all match. Key returns that identity for use as a
// set/map key.
type SourceConfig struct {
	Name string     `json:"name"`
	Type SourceType `json:"type"`
	URL  string     `json:"url"`
}

// Key returns the structural identity of the source, suitable as a map key.
func (s SourceConfig) Key() string {
	return s.Name + "\x00" + string(s.Type) + "\x00" + s.URL
}

// Validate checks that the source has a name, a URL, and a known type.
func (s SourceConfig) Validate() error {
	if s.Name == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if s.URL == "" {
		return &ValidationError{Field: "url", Message: "must not be empty"}
	}
	switch s.Type {
	case SourceTypeRSS, SourceTypeAtom, SourceTypeHackerNews:
		return nil
	default:
		return &ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("unknown source type %q (must be rss, atom, or hackernews)", s.Type),
		}
	}
}
