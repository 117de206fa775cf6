package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// MethodType identifies an authentication strategy.
type MethodType string

// Built-in strategy identifiers.
const (
	// TypeJWT obtains a token via the API and seeds a browser session with it.
	TypeJWT MethodType = "jwt"

	// TypeLogin obtains a token via the API without touching a browser.
	TypeLogin MethodType = "login"

	// TypeUILogin drives the real login form in a browser.
	TypeUILogin MethodType = "ui-login"
)

// Credentials is the immutable input to one authentication attempt.
type Credentials struct {
	Email    string
	Password string
	Username string
}

// GenerateCredentials mints a unique set of credentials for one test run.
// The uuid suffix keeps parallel workers from colliding on the same account.
func GenerateCredentials() Credentials {
	id := uuid.NewString()[:8]
	return Credentials{
		Email:    fmt.Sprintf("e2e-%s@nutrilog.test", id),
		Password: fmt.Sprintf("E2e-pass-%s", id),
		Username: fmt.Sprintf("e2e-%s", id),
	}
}

// Result is produced once per successful authentication. Ownership passes to
// the caller, which either seeds a persisted session snapshot or injects the
// token directly.
type Result struct {
	// Token is the access token returned by the target.
	Token string

	// User is the opaque user record returned alongside the token.
	User map[string]any

	// StorageStatePath is the filesystem path of the persisted session
	// snapshot, when the method produced one.
	StorageStatePath string
}

// NewResult constructs a Result, enforcing that a definitive success carries
// both a token and a user record.
func NewResult(token string, user map[string]any) (*Result, error) {
	if token == "" {
		return nil, NewJWTError("authentication response carried no token", nil)
	}
	if user == nil {
		return nil, NewGenericError(CodeAuthFailed, "authentication response carried no user record", nil)
	}
	return &Result{Token: token, User: user}, nil
}

// Method is one concrete strategy for obtaining an authenticated session.
type Method interface {
	// Authenticate performs the full authentication flow for the given
	// credentials.
	Authenticate(ctx context.Context, creds Credentials) (*Result, error)

	// Type returns the stable strategy identifier.
	Type() MethodType

	// SupportsStorageState reports whether the method can persist a
	// reusable session snapshot.
	SupportsStorageState() bool
}
