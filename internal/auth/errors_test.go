package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		want string
	}{
		{KindGeneric, "generic"},
		{KindNetwork, "network"},
		{KindInvalidCredentials, "invalid_credentials"},
		{KindJWT, "jwt"},
		{KindTimeout, "timeout"},
		{KindRetryExhausted, "retry_exhausted"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}

func TestConstructors_RetryableDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		err           *Error
		wantKind      Kind
		wantCode      string
		wantRetryable bool
	}{
		{"network", NewNetworkError("refused", nil), KindNetwork, CodeNetworkError, true},
		{"rate limited", NewRateLimitedError("slow down"), KindNetwork, CodeRateLimited, true},
		{"invalid credentials", NewInvalidCredentialsError("no"), KindInvalidCredentials, CodeInvalidCredentials, false},
		{"jwt", NewJWTError("garbage", nil), KindJWT, CodeMalformedToken, false},
		{"timeout", NewTimeoutError("deadline"), KindTimeout, CodeTimeout, false},
		{"retry exhausted", NewRetryExhaustedError("op", 3, nil), KindRetryExhausted, CodeRetryExhausted, false},
		{"generic", NewGenericError("", "odd", nil), KindGeneric, CodeAuthFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantKind, tt.err.Kind)
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantRetryable, tt.err.Retryable)
		})
	}
}

func TestNewJWTError_RetryableWhenWrappingNetworkCause(t *testing.T) {
	t.Parallel()

	assert.False(t, NewJWTError("garbage token", nil).Retryable)
	assert.False(t, NewJWTError("garbage token", errors.New("parse error")).Retryable)
	assert.True(t, NewJWTError("token fetch failed", NewNetworkError("reset", nil)).Retryable)
}

func TestNewRetryExhaustedError(t *testing.T) {
	t.Parallel()

	last := NewNetworkError("refused", nil)
	err := NewRetryExhaustedError("login", 4, last)

	assert.Equal(t, 4, err.Attempts)
	assert.Contains(t, err.Message, "login failed after 4 attempts")
	assert.Same(t, last, err.Cause.(*Error))
}

func TestError_UnwrapAndIs(t *testing.T) {
	t.Parallel()

	cause := errors.New("socket closed")
	err := NewNetworkError("request failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	// Matching against another *Error compares kinds.
	assert.ErrorIs(t, err, &Error{Kind: KindNetwork})
	assert.NotErrorIs(t, err, &Error{Kind: KindTimeout})
}

func TestError_ErrorIncludesKindAndCode(t *testing.T) {
	t.Parallel()

	err := NewInvalidCredentialsError("rejected")
	assert.Contains(t, err.Error(), "invalid_credentials")
	assert.Contains(t, err.Error(), CodeInvalidCredentials)
	assert.Contains(t, err.Error(), "rejected")

	withCause := NewNetworkError("request failed", errors.New("socket closed"))
	assert.Contains(t, withCause.Error(), "socket closed")
}

func TestAsAuthError(t *testing.T) {
	t.Parallel()

	authErr, ok := AsAuthError(NewTimeoutError("deadline"))
	require.True(t, ok)
	assert.Equal(t, KindTimeout, authErr.Kind)

	// Found through wrapping.
	wrapped := NewRetryExhaustedError("op", 2, NewInvalidCredentialsError("no"))
	authErr, ok = AsAuthError(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindRetryExhausted, authErr.Kind)

	_, ok = AsAuthError(errors.New("plain"))
	assert.False(t, ok)
}

func TestCodeOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CodeTimeout, CodeOf(NewTimeoutError("deadline")))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
}
