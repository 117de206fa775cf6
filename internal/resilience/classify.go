package resilience

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"

	"github.com/nutrilog/authharness/internal/auth"
)

// StatusError marks a response that carried a retry-relevant HTTP status
// code, for callers that surface raw statuses instead of typed auth errors.
type StatusError struct {
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

// NewStatusError creates a StatusError for the given status code.
func NewStatusError(statusCode int) *StatusError {
	return &StatusError{StatusCode: statusCode}
}

// ClassifyRetryable reports whether a failure is worth another attempt.
//
// An explicit auth.Error classification always wins: a kind marked
// non-retryable stays non-retryable even when a generic network code is also
// present in the chain. Errors without an explicit verdict fall through to
// transport heuristics (connection refused/reset, timeouts, truncated reads)
// and to HTTP status 429/5xx.
func ClassifyRetryable(err error) bool {
	if err == nil {
		return false
	}

	if authErr, ok := auth.AsAuthError(err); ok {
		return authErr.Retryable
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode
		return code == 429 || (code >= 500 && code < 600)
	}

	return isTransientNetworkError(err)
}

// isTransientNetworkError applies the transport-level heuristics.
func isTransientNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout() || urlErr.Temporary()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	// Truncated response: the connection dropped mid-exchange.
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	return false
}
