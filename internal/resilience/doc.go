// Package resilience wraps authentication operations in the harness's
// partial-failure policy: error classification, HTTP response translation,
// per-attempt deadlines, and bounded exponential-backoff retries.
//
// Classification is the single point of truth for retry decisions. An
// explicit auth.Error verdict always wins over the network heuristics, so an
// invalid-credentials failure is never retried even when it also looks like a
// transport problem.
//
// WithTimeout cancels the wait, not the operation: a timed-out attempt keeps
// running in the background and its eventual result is discarded. Callers
// must treat a timeout as "outcome unknown" for the abandoned attempt.
package resilience
