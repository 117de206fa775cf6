package resilience

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nutrilog/authharness/internal/auth"
)

func TestClassifyRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network auth error", auth.NewNetworkError("connection refused", nil), true},
		{"rate limited", auth.NewRateLimitedError("slow down"), true},
		{"invalid credentials", auth.NewInvalidCredentialsError("rejected"), false},
		{"jwt error", auth.NewJWTError("garbage token", nil), false},
		{"timeout", auth.NewTimeoutError("deadline"), false},
		{"retry exhausted", auth.NewRetryExhaustedError("op", 3, nil), false},
		{"generic auth error", auth.NewGenericError("", "unknown", nil), false},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"wrapped connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"eof", io.EOF, true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"net op error", &net.OpError{Op: "dial", Err: errors.New("down")}, true},
		{"status 429", NewStatusError(429), true},
		{"status 500", NewStatusError(500), true},
		{"status 503", NewStatusError(503), true},
		{"status 400", NewStatusError(400), false},
		{"status 404", NewStatusError(404), false},
		{"plain error", errors.New("something else"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ClassifyRetryable(tt.err))
		})
	}
}

func TestClassifyRetryable_ExplicitClassificationWins(t *testing.T) {
	t.Parallel()

	// An invalid-credentials verdict stays final even when a network-class
	// code is also present in the chain.
	err := &auth.Error{
		Kind:      auth.KindInvalidCredentials,
		Code:      auth.CodeInvalidCredentials,
		Message:   "rejected",
		Retryable: false,
		Cause:     syscall.ECONNREFUSED,
	}
	assert.False(t, ClassifyRetryable(err))

	// And a JWT error wrapping a network cause follows its own flag.
	jwtErr := auth.NewJWTError("token fetch truncated", auth.NewNetworkError("reset", nil))
	assert.True(t, ClassifyRetryable(jwtErr))
}
