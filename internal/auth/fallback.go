package auth

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Fallback decorates two Methods: the primary is attempted first, and on any
// authentication failure the secondary is attempted with the same
// credentials. There is no third level.
//
// A Fallback instance is owned by a single test worker; like every Method it
// is not safe for concurrent Authenticate calls.
type Fallback struct {
	primary  Method
	fallback Method
	logger   *zap.Logger

	// lastUsed is the method that produced the most recent successful
	// result. Primary until proven otherwise.
	lastUsed Method
}

// NewFallback creates a fallback-wrapped composite of two methods.
func NewFallback(primary, fallback Method, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fallback{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
	f.lastUsed = primary
	return f
}

// Type returns a composite label identifying both wrapped strategies.
func (f *Fallback) Type() MethodType {
	return MethodType(fmt.Sprintf("%s+%s", f.primary.Type(), f.fallback.Type()))
}

// SupportsStorageState reports the capability of whichever method actually
// produced the successful result: the primary's before any fallback, the
// fallback's after it took over.
func (f *Fallback) SupportsStorageState() bool {
	return f.lastUsed.SupportsStorageState()
}

// Authenticate attempts the primary method and, on failure, transparently
// attempts the fallback with the same credentials. When both fail, the
// fallback's error is surfaced; the primary's failure is retained as its
// cause so the first root cause is not lost.
func (f *Fallback) Authenticate(ctx context.Context, creds Credentials) (*Result, error) {
	result, primaryErr := f.primary.Authenticate(ctx, creds)
	if primaryErr == nil {
		f.lastUsed = f.primary
		return result, nil
	}

	f.logger.Warn("primary authentication method failed, trying fallback",
		zap.String("primary", string(f.primary.Type())),
		zap.String("fallback", string(f.fallback.Type())),
		zap.Error(primaryErr),
	)
	FallbackActivationsTotal.WithLabelValues(
		string(f.primary.Type()), string(f.fallback.Type()),
	).Inc()

	result, fallbackErr := f.fallback.Authenticate(ctx, creds)
	if fallbackErr != nil {
		if authErr, ok := AsAuthError(fallbackErr); ok && authErr.Cause == nil {
			// Copy, not mutate: the method may hand out a shared error
			// value across calls.
			withCause := *authErr
			withCause.Cause = primaryErr
			return nil, &withCause
		}
		return nil, fallbackErr
	}

	f.lastUsed = f.fallback
	return result, nil
}
