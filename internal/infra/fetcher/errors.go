package fetcher

import "errors"

// Sentinel errors for content fetching. Callers use these to decide whether
// to fall back to title-only summarization.
var (
	// ErrInvalidURL indicates the URL failed parsing or scheme validation.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrPrivateIP indicates the hostname resolves to a private, loopback,
	// or link-local address.
	ErrPrivateIP = errors.New("URL resolves to private IP")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("content fetch timed out")

	// ErrBodyTooLarge indicates the response body exceeded the size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTooManyRedirects indicates the redirect chain exceeded the limit.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrExtractionFailed indicates readability could not find article text.
	ErrExtractionFailed = errors.New("content extraction failed")
)
