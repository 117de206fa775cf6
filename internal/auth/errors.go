package auth

import (
	"errors"
	"fmt"
)

// Kind identifies the category of an authentication failure. Classification
// is a match over this tag, not a type assertion, so retry decisions stay
// exhaustive at compile time.
type Kind int

const (
	// KindGeneric is an authentication failure that fits no other category.
	KindGeneric Kind = iota

	// KindNetwork is a transport-level failure (connection refused/reset,
	// DNS failure, 5xx response).
	KindNetwork

	// KindInvalidCredentials is a definitive rejection of the credentials
	// (401/403 response).
	KindInvalidCredentials

	// KindJWT is a malformed or missing token in an otherwise successful
	// exchange.
	KindJWT

	// KindTimeout is an attempt that ran past its deadline.
	KindTimeout

	// KindRetryExhausted is a terminal failure after the retry budget was
	// spent.
	KindRetryExhausted
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindJWT:
		return "jwt"
	case KindTimeout:
		return "timeout"
	case KindRetryExhausted:
		return "retry_exhausted"
	default:
		return "generic"
	}
}

// Error codes used by callers for exact matching, independent of kind.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeRateLimited        = "RATE_LIMITED"
	CodeTimeout            = "TIMEOUT"
	CodeNetworkError       = "NETWORK_ERROR"
	CodeMalformedToken     = "MALFORMED_TOKEN"
	CodeRetryExhausted     = "RETRY_EXHAUSTED"
	CodeAuthFailed         = "AUTH_FAILED"
	CodeUnknownMethod      = "UNKNOWN_METHOD"
)

// ErrAuthenticationFailed is the sentinel every *Error matches via errors.Is.
var ErrAuthenticationFailed = errors.New("authentication failed")

// Error is an authentication failure with enough context to drive retry
// decisions and diagnostics.
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Retryable bool
	Cause     error

	// Attempts is the number of attempts actually made. Only set when
	// Kind is KindRetryExhausted.
	Attempts int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth error (%s/%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("auth error (%s/%s): %s", e.Kind, e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches the target: the
// ErrAuthenticationFailed sentinel matches every *Error, and two *Error
// values match when their kinds agree.
func (e *Error) Is(target error) bool {
	if target == ErrAuthenticationFailed {
		return true
	}
	if other, ok := target.(*Error); ok {
		return other.Kind == e.Kind
	}
	return false
}

// NewNetworkError creates a KindNetwork error. Network failures are
// retryable by default.
func NewNetworkError(message string, cause error) *Error {
	return &Error{
		Kind:      KindNetwork,
		Code:      CodeNetworkError,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// NewRateLimitedError creates a KindNetwork error with the RATE_LIMITED code.
func NewRateLimitedError(message string) *Error {
	return &Error{
		Kind:      KindNetwork,
		Code:      CodeRateLimited,
		Message:   message,
		Retryable: true,
	}
}

// NewInvalidCredentialsError creates a KindInvalidCredentials error.
// Never retryable: the target has definitively rejected the credentials.
func NewInvalidCredentialsError(message string) *Error {
	return &Error{
		Kind:      KindInvalidCredentials,
		Code:      CodeInvalidCredentials,
		Message:   message,
		Retryable: false,
	}
}

// NewJWTError creates a KindJWT error. Not retryable unless it wraps a
// network-level cause, in which case another attempt may yield a valid token.
func NewJWTError(message string, cause error) *Error {
	retryable := false
	var authErr *Error
	if errors.As(cause, &authErr) && authErr.Kind == KindNetwork {
		retryable = true
	}
	return &Error{
		Kind:      KindJWT,
		Code:      CodeMalformedToken,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// NewTimeoutError creates a KindTimeout error for an operation that ran past
// its deadline. The base kind is not retryable; composed retry loops opt in
// explicitly.
func NewTimeoutError(message string) *Error {
	return &Error{
		Kind:      KindTimeout,
		Code:      CodeTimeout,
		Message:   message,
		Retryable: false,
	}
}

// NewRetryExhaustedError creates the terminal KindRetryExhausted error.
// The last attempt's error is preserved as the cause so the root failure is
// never lost.
func NewRetryExhaustedError(label string, attempts int, lastErr error) *Error {
	return &Error{
		Kind:      KindRetryExhausted,
		Code:      CodeRetryExhausted,
		Message:   fmt.Sprintf("%s failed after %d attempts", label, attempts),
		Retryable: false,
		Cause:     lastErr,
		Attempts:  attempts,
	}
}

// NewGenericError creates a KindGeneric error. Not retryable.
func NewGenericError(code, message string, cause error) *Error {
	if code == "" {
		code = CodeAuthFailed
	}
	return &Error{
		Kind:    KindGeneric,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// AsAuthError extracts an *Error from err's chain, if present.
func AsAuthError(err error) (*Error, bool) {
	var authErr *Error
	ok := errors.As(err, &authErr)
	return authErr, ok
}

// CodeOf returns the error code from err's chain, or "" if err carries none.
func CodeOf(err error) string {
	if authErr, ok := AsAuthError(err); ok {
		return authErr.Code
	}
	return ""
}
