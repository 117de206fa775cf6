// Package auth provides the authentication strategies the end-to-end harness
// uses to establish a session against the target application.
//
// A Method encapsulates one concrete way to obtain an authenticated session:
// token retrieval with browser-seeded storage state ("jwt"), API login with
// client-side token injection ("login"), or a full form-driven UI login
// ("ui-login"). Methods are instantiated through a Registry keyed by
// MethodType and can be composed into a two-level Fallback chain.
//
// All strategies surface the same tagged error taxonomy (Error/Kind), which
// the resilience package uses to decide whether a failure is worth retrying.
package auth
