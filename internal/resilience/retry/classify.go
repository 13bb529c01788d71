package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// transientPatterns are the message substrings that mark an error as
// transient. Provider error bodies arrive as free text inside the error
// message, so this single provider-agnostic list covers network blips,
// rate limiting, and server-side failures for every backend. The match is
// case-insensitive.
var transientPatterns = []string{
	"timeout",
	"connection",
	"rate limit",
	"408",
	"429",
	"500",
	"502",
	"503",
	"504",
	"temporarily",
	"overloaded",
}

// IsTransient reports whether the error is likely to succeed on retry.
//
// Typed errors are classified on their kind: cancellation never retries,
// timeouts always do, and HTTPError retries on 5xx, 429, and 408.
// Everything else falls back to matching the error text against
// transientPatterns, which is the only signal available at the boundary
// with black-box collaborators.
//
// Timed-out attempts match context.DeadlineExceeded (http.Client.Timeout
// does too), but that identity says nothing about whether the caller has
// given up: attempts run under their own deadlines, and WithBackoff's
// driver context is what stops the loop when the caller is done. So
// deadline errors classify transient here.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode >= 500 && httpErr.StatusCode < 600:
			return true
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return true
		case httpErr.StatusCode == http.StatusRequestTimeout:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
