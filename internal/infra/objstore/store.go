// Package objstore persists pipeline documents (source config, manifest,
// rendered summaries) in a cloud object bucket.
package objstore

import (
	"context"
	"strings"
)

// Store is the object storage abstraction the pipeline writes through.
// Implementations map their backend's "no such object" condition to
// entity.ErrNotFound.
type Store interface {
	// Get reads the full contents of an object.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes an object, replacing any existing contents. The content
	// type is derived from the key's extension.
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes an object. Deleting a missing object returns
	// entity.ErrNotFound.
	Delete(ctx context.Context, key string) error

	// PublicURL returns the public HTTPS URL of an object.
	PublicURL(key string) string
}

// Well-known object keys.
const (
	SourcesKey        = "config/sources.json"
	UserCandidatesKey = "config/user_candidates.json"
	ManifestKey       = "manifest.json"
)

// contentTypeForKey derives the Content-Type from the object key extension.
func contentTypeForKey(key string) string {
	switch {
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	case strings.HasSuffix(key, ".md"):
		return "text/markdown; charset=utf-8"
	case strings.HasSuffix(key, ".html"):
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
