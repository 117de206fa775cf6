// Package login implements the API-login authentication strategy: obtain a
// token through the API and hand it to the caller for client-side injection.
// Storage-state persistence is the caller's responsibility.
package login

import (
	"context"
	"time"

	lwjwt "github.com/lestrrat-go/jwx/v2/jwt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/nutrilog/authharness/internal/apiclient"
	"github.com/nutrilog/authharness/internal/auth"
	"github.com/nutrilog/authharness/internal/resilience"
)

var tracer = otel.Tracer("authharness/auth/login")

// Options configures the API-login method.
type Options struct {
	// Client talks to the target's auth API. Required.
	Client *apiclient.Client

	// Run is the retry/timeout policy applied to the API calls.
	Run resilience.RunConfig

	Logger *zap.Logger
}

// Method is the API-login authentication strategy.
type Method struct {
	opts Options
}

// New creates the API-login method.
func New(opts Options) *Method {
	if opts.Run.Retry == (resilience.Config{}) {
		opts.Run = resilience.DefaultRunConfig()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Method{opts: opts}
}

// Type returns the strategy identifier.
func (m *Method) Type() auth.MethodType {
	return auth.TypeLogin
}

// SupportsStorageState reports that the caller can persist a snapshot from
// the returned token.
func (m *Method) SupportsStorageState() bool {
	return true
}

// Authenticate registers and logs in through the API and returns the token
// and user record without touching a browser.
func (m *Method) Authenticate(ctx context.Context, creds auth.Credentials) (*auth.Result, error) {
	ctx, span := tracer.Start(ctx, "auth.login.authenticate")
	defer span.End()

	start := time.Now()
	result, err := m.authenticate(ctx, creds)
	auth.RecordAttempt(auth.TypeLogin, err == nil, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "authentication failed")
	}
	return result, err
}

func (m *Method) authenticate(ctx context.Context, creds auth.Credentials) (*auth.Result, error) {
	login, err := apiclient.RegisterAndLogin(ctx, m.opts.Client, creds, m.opts.Run, m.opts.Logger)
	if err != nil {
		return nil, err
	}
	if _, parseErr := lwjwt.ParseInsecure([]byte(login.Token)); parseErr != nil {
		return nil, auth.NewJWTError("login returned a malformed token", parseErr)
	}
	return auth.NewResult(login.Token, login.User)
}
