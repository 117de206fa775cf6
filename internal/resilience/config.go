package resilience

import (
	"errors"
	"fmt"
	"time"
)

// Default retry configuration.
const (
	// DefaultMaxRetries is the default total attempt budget.
	DefaultMaxRetries = 3

	// DefaultInitialDelay is the default delay before the first retry.
	DefaultInitialDelay = 100 * time.Millisecond

	// DefaultBackoffMultiplier is the default exponential growth factor.
	DefaultBackoffMultiplier = 2.0

	// DefaultTimeout is the default per-attempt deadline.
	DefaultTimeout = 10 * time.Second
)

// Config is the retry configuration. It is a pure value with no shared
// mutable state; every recognized option and its default is explicit.
type Config struct {
	// MaxRetries is the total attempt budget, including the first attempt.
	// Must be at least 1.
	MaxRetries int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// BackoffMultiplier is the exponential growth factor applied per
	// attempt. Must be at least 1.
	BackoffMultiplier float64

	// MaxDelay caps the backoff delay. Zero means unbounded.
	MaxDelay time.Duration
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:        DefaultMaxRetries,
		InitialDelay:      DefaultInitialDelay,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

// Validate checks the configuration at the boundary, before first use.
func (c Config) Validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("retry config: maxRetries must be at least 1, got %d", c.MaxRetries)
	}
	if c.InitialDelay < 0 {
		return errors.New("retry config: initialDelay must not be negative")
	}
	if c.BackoffMultiplier < 1 {
		return fmt.Errorf("retry config: backoffMultiplier must be at least 1, got %g", c.BackoffMultiplier)
	}
	if c.MaxDelay < 0 {
		return errors.New("retry config: maxDelay must not be negative")
	}
	return nil
}

// DelayForAttempt returns the backoff delay to apply after the given failed
// attempt. Attempts are counted from 1, so the first retry waits
// InitialDelay exactly.
func (c Config) DelayForAttempt(attempt int) time.Duration {
	delay := float64(c.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= c.BackoffMultiplier
	}
	if c.MaxDelay > 0 && delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	return time.Duration(delay)
}

// RunConfig bundles the retry policy with a per-attempt deadline for the
// composed retry-with-timeout pipeline.
type RunConfig struct {
	Retry   Config
	Timeout time.Duration
}

// DefaultRunConfig returns the default composed configuration.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Retry:   DefaultConfig(),
		Timeout: DefaultTimeout,
	}
}
