package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nutrilog/authharness/internal/auth"
)

// RetryWithBackoff runs the operation under a bounded exponential-backoff
// retry policy. The attempt counter starts at 1 and the operation is invoked
// at least once regardless of config.
//
// A non-retryable failure is returned unmodified immediately. A retryable
// failure on the final attempt is wrapped in a KindRetryExhausted error whose
// Attempts field equals the number of attempts actually made. A success at
// any attempt returns immediately, short-circuiting the remaining budget.
func RetryWithBackoff[T any](ctx context.Context, op Operation[T], cfg Config, label string) (T, error) {
	var zero T
	if err := cfg.Validate(); err != nil {
		return zero, err
	}

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		RecordRetryAttempt(label, attempt)

		value, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				RetrySuccessTotal.WithLabelValues(label).Inc()
			}
			RetryDuration.WithLabelValues(label, "success").Observe(time.Since(start).Seconds())
			return value, nil
		}
		lastErr = err

		if !ClassifyRetryable(err) {
			RetryDuration.WithLabelValues(label, "aborted").Observe(time.Since(start).Seconds())
			return zero, err
		}

		if attempt == cfg.MaxRetries {
			break
		}

		delay := cfg.DelayForAttempt(attempt)
		RetryBackoffDuration.WithLabelValues(label).Observe(delay.Seconds())

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	RetryFailureTotal.WithLabelValues(label).Inc()
	RetryDuration.WithLabelValues(label, "exhausted").Observe(time.Since(start).Seconds())
	return zero, auth.NewRetryExhaustedError(label, cfg.MaxRetries, lastErr)
}

// RetryWithTimeoutAndLogging composes the per-attempt deadline with the retry
// policy: each individual attempt runs under WithTimeout, and the whole
// sequence runs under RetryWithBackoff. Inside this composition a per-attempt
// timeout is treated as a retryable condition, even though the base kind
// defaults to non-retryable, because the next attempt gets a fresh deadline.
//
// Each attempt's start and outcome is reported through the logger; the log
// lines are diagnostics only and have no bearing on control flow.
func RetryWithTimeoutAndLogging[T any](
	ctx context.Context,
	op Operation[T],
	cfg RunConfig,
	label string,
	logger *zap.Logger,
) (T, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	attempt := 0
	timedOp := func(ctx context.Context) (T, error) {
		attempt++
		attemptStart := time.Now()
		logger.Debug("starting authentication attempt",
			zap.String("operation", label),
			zap.Int("attempt", attempt),
		)

		value, err := WithTimeout(ctx, op, timeout, label)
		elapsed := time.Since(attemptStart)
		if err != nil {
			if authErr, ok := auth.AsAuthError(err); ok && authErr.Kind == auth.KindTimeout {
				// Copy, not mutate: the original error may already be
				// held by the abandoned attempt's caller.
				retryableTimeout := *authErr
				retryableTimeout.Retryable = true
				err = &retryableTimeout
			}
			logger.Warn("authentication attempt failed",
				zap.String("operation", label),
				zap.Int("attempt", attempt),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
			var zero T
			return zero, err
		}

		logger.Info("authentication attempt succeeded",
			zap.String("operation", label),
			zap.Int("attempt", attempt),
			zap.Duration("elapsed", elapsed),
		)
		return value, nil
	}

	return RetryWithBackoff(ctx, timedOp, cfg.Retry, label)
}
