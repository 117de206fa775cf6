package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/nutrilog/authharness/internal/auth"
)

// Operation is an injected async operation producing a value of type T.
type Operation[T any] func(ctx context.Context) (T, error)

type outcome[T any] struct {
	value T
	err   error
}

// WithTimeout races the operation against a timer. If the timer fires first,
// a KindTimeout error embedding the deadline and label is returned.
//
// The underlying operation is not forcibly cancelled: it keeps running to
// completion or failure in the background, unobserved, and its result is
// discarded. A login that times out on the client side may therefore still
// have registered server-side.
func WithTimeout[T any](ctx context.Context, op Operation[T], timeout time.Duration, label string) (T, error) {
	var zero T

	// Buffered so the abandoned goroutine never blocks on delivery.
	done := make(chan outcome[T], 1)
	go func() {
		value, err := op(ctx)
		done <- outcome[T]{value: value, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.value, out.err
	case <-timer.C:
		return zero, auth.NewTimeoutError(
			fmt.Sprintf("%s timed out after %dms", label, timeout.Milliseconds()))
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
