// Package jwt implements the token-based authentication strategy: obtain a
// token through the API, seed a browser session with it, and persist the
// session snapshot for later test runs.
package jwt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	lwjwt "github.com/lestrrat-go/jwx/v2/jwt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/nutrilog/authharness/internal/apiclient"
	"github.com/nutrilog/authharness/internal/auth"
	"github.com/nutrilog/authharness/internal/browser"
	"github.com/nutrilog/authharness/internal/resilience"
)

var tracer = otel.Tracer("authharness/auth/jwt")

// Local storage keys the target application reads its session from.
const (
	tokenStorageKey = "token"
	userStorageKey  = "user"
)

// Options configures the token-based method.
type Options struct {
	// Client talks to the target's auth API. Required.
	Client *apiclient.Client

	// Browser is the automation collaborator. Required.
	Browser browser.Browser

	// Origin is the target application's origin, e.g. http://localhost:3000.
	Origin string

	// LoginPath is the path of the login page, used to detect rejected
	// tokens. Default "/login".
	LoginPath string

	// ProtectedPath is a path that requires authentication. Default "/diary".
	ProtectedPath string

	// StorageStatePath is where the persisted session snapshot is written.
	StorageStatePath string

	// Run is the retry/timeout policy applied to the API calls.
	Run resilience.RunConfig

	Logger *zap.Logger
}

// Method is the token-based authentication strategy.
type Method struct {
	opts Options
}

// New creates the token-based method.
func New(opts Options) *Method {
	if opts.Run.Retry == (resilience.Config{}) {
		opts.Run = resilience.DefaultRunConfig()
	}
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	if opts.ProtectedPath == "" {
		opts.ProtectedPath = "/diary"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Method{opts: opts}
}

// Type returns the strategy identifier.
func (m *Method) Type() auth.MethodType {
	return auth.TypeJWT
}

// SupportsStorageState reports that this method persists a session snapshot.
func (m *Method) SupportsStorageState() bool {
	return true
}

// Authenticate registers and logs in through the API, then seeds a browser
// session with the returned token, verifies it is accepted, and persists the
// session snapshot.
func (m *Method) Authenticate(ctx context.Context, creds auth.Credentials) (*auth.Result, error) {
	ctx, span := tracer.Start(ctx, "auth.jwt.authenticate")
	defer span.End()

	start := time.Now()
	result, err := m.authenticate(ctx, creds)
	auth.RecordAttempt(auth.TypeJWT, err == nil, time.Since(start))
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

	result, err := auth.NewResult(login.Token, login.User)
	if err != nil {
		return nil, err
	}

	// The browser phase runs under the same per-operation deadline as the
	// API calls. The derived context stops the abandoned polls once the
	// deadline verdict is in, so the browser context gets released.
	browserCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	_, err = resilience.WithTimeout(browserCtx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.seedBrowserSession(ctx, result)
	}, m.browserTimeout(), "browser session seeding")
	if err != nil {
		return nil, err
	}
	result.StorageStatePath = m.opts.StorageStatePath
	return result, nil
}

func (m *Method) browserTimeout() time.Duration {
	if m.opts.Run.Timeout > 0 {
		return m.opts.Run.Timeout
	}
	return resilience.DefaultTimeout
}

// seedBrowserSession injects the token into the target origin's local
// storage, verifies a protected path does not bounce to login, and writes
// the session snapshot. The browser context is released on every exit path.
func (m *Method) seedBrowserSession(ctx context.Context, result *auth.Result) error {
	bctx, err := m.opts.Browser.NewContext(ctx)
	if err != nil {
		return auth.NewNetworkError("failed to open browser context", err)
	}
	defer func() {
		if closeErr := bctx.Close(); closeErr != nil {
			m.opts.Logger.Warn("failed to close browser context", zap.Error(closeErr))
		}
	}()

	page, err := bctx.NewPage(ctx)
	if err != nil {
		return auth.NewNetworkError("failed to open browser page", err)
	}

	if err := page.Navigate(ctx, m.opts.Origin); err != nil {
		return auth.NewNetworkError("failed to open target origin", err)
	}

	if err := m.injectSession(ctx, page, result); err != nil {
		return err
	}

	if err := page.Navigate(ctx, m.opts.Origin+m.opts.ProtectedPath); err != nil {
		return auth.NewNetworkError("failed to open protected path", err)
	}
	current, err := page.URL(ctx)
	if err != nil {
		return auth.NewNetworkError("failed to read page location", err)
	}
	if strings.Contains(current, m.opts.LoginPath) {
		return auth.NewJWTError(
			fmt.Sprintf("injected token was rejected: %s redirected to %s", m.opts.ProtectedPath, current), nil)
	}

	if m.opts.StorageStatePath == "" {
		return nil
	}
	state, err := bctx.StorageState(ctx)
	if err != nil {
		return auth.NewNetworkError("failed to capture storage state", err)
	}
	if err := state.Save(m.opts.StorageStatePath); err != nil {
		return auth.NewGenericError(auth.CodeAuthFailed, "failed to persist storage state", err)
	}
	m.opts.Logger.Info("persisted session snapshot",
		zap.String("path", m.opts.StorageStatePath),
	)
	return nil
}

func (m *Method) injectSession(ctx context.Context, page browser.Page, result *auth.Result) error {
	userJSON, err := json.Marshal(result.User)
	if err != nil {
		return auth.NewGenericError(auth.CodeAuthFailed, "failed to encode user record", err)
	}
	script := fmt.Sprintf(`(() => {
		localStorage.setItem(%q, %q);
		localStorage.setItem(%q, %s);
		return true;
	})()`, tokenStorageKey, result.Token, userStorageKey, jsString(userJSON))
	if _, err := page.Evaluate(ctx, script); err != nil {
		return auth.NewNetworkError("failed to inject session into local storage", err)
	}
	return nil
}

// jsString renders raw JSON as a JavaScript string literal.
func jsString(raw []byte) string {
	quoted, _ := json.Marshal(string(raw))
	return string(quoted)
}
