// Package uilogin implements the UI-driven authentication strategy: the
// account is seeded through the API, but the login itself goes through the
// real form in a browser.
package uilogin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/nutrilog/authharness/internal/apiclient"
	"github.com/nutrilog/authharness/internal/auth"
	"github.com/nutrilog/authharness/internal/browser"
	"github.com/nutrilog/authharness/internal/resilience"
)

var tracer = otel.Tracer("authharness/auth/uilogin")

// navigationPollInterval is how often the method re-checks whether the form
// submission navigated away from the login page.
const navigationPollInterval = 100 * time.Millisecond

// Form selectors on the target's login page.
const (
	emailSelector    = `input[name="email"]`
	passwordSelector = `input[name="password"]`
	submitSelector   = `button[type="submit"]`
)

// Options configures the UI-login method.
type Options struct {
	// Client seeds the account through the API. Required.
	Client *apiclient.Client

	// Browser is the automation collaborator. Required.
	Browser browser.Browser

	// Origin is the target application's origin.
	Origin string

	// LoginPath is the path of the login page. Default "/login".
	LoginPath string

	// Run is the retry/timeout policy applied to the API calls.
	Run resilience.RunConfig

	Logger *zap.Logger
}

// Method is the UI-form-driven authentication strategy.
type Method struct {
	opts Options
}

// New creates the UI-login method.
func New(opts Options) *Method {
	if opts.Run.Retry == (resilience.Config{}) {
		opts.Run = resilience.DefaultRunConfig()
	}
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Method{opts: opts}
}

// Type returns the strategy identifier.
func (m *Method) Type() auth.MethodType {
	return auth.TypeUILogin
}

// SupportsStorageState reports that this method produces no session
// snapshot.
func (m *Method) SupportsStorageState() bool {
	return false
}

// Authenticate seeds the account via the API, then drives the real login
// form: navigate, type email, type password, submit, wait for navigation off
// the login path.
func (m *Method) Authenticate(ctx context.Context, creds auth.Credentials) (*auth.Result, error) {
	ctx, span := tracer.Start(ctx, "auth.uilogin.authenticate")
	defer span.End()

	start := time.Now()
	result, err := m.authenticate(ctx, creds)
	auth.RecordAttempt(auth.TypeUILogin, err == nil, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "authentication failed")
	}
	return result, err
}

func (m *Method) authenticate(ctx context.Context, creds auth.Credentials) (*auth.Result, error) {
	// The API login here only supplies the token/user for the Result; the
	// session the tests run against is established by the form flow below.
	// The form submission yields no token on a separate channel, so the
	// API is the only place to obtain one for callers.
	login, err := apiclient.RegisterAndLogin(ctx, m.opts.Client, creds, m.opts.Run, m.opts.Logger)
	if err != nil {
		return nil, err
	}

	// The form flow runs under the same per-operation deadline as the API
	// calls. The derived context stops the abandoned navigation polls once
	// the deadline verdict is in, so the browser context gets released.
	browserCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	_, err = resilience.WithTimeout(browserCtx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.loginThroughForm(ctx, creds)
	}, m.browserTimeout(), "form login")
	if err != nil {
		return nil, err
	}
	return auth.NewResult(login.Token, login.User)
}

func (m *Method) browserTimeout() time.Duration {
	if m.opts.Run.Timeout > 0 {
		return m.opts.Run.Timeout
	}
	return resilience.DefaultTimeout
}

// loginThroughForm drives the actual form. The browser context is released
// on every exit path.
func (m *Method) loginThroughForm(ctx context.Context, creds auth.Credentials) error {
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

	loginURL := m.opts.Origin + m.opts.LoginPath
	if err := page.Navigate(ctx, loginURL); err != nil {
		return auth.NewNetworkError("failed to open login page", err)
	}

	if err := page.Fill(ctx, emailSelector, creds.Email); err != nil {
		return auth.NewGenericError(auth.CodeAuthFailed, "failed to fill email field", err)
	}
	if err := page.Fill(ctx, passwordSelector, creds.Password); err != nil {
		return auth.NewGenericError(auth.CodeAuthFailed, "failed to fill password field", err)
	}
	if err := page.Click(ctx, submitSelector); err != nil {
		return auth.NewGenericError(auth.CodeAuthFailed, "failed to submit login form", err)
	}

	return m.waitForNavigation(ctx, page)
}

// waitForNavigation polls until the page leaves the login path. The caller's
// deadline bounds the wait; a form that never navigates means the target
// rejected the credentials it accepted over the API moments earlier.
func (m *Method) waitForNavigation(ctx context.Context, page browser.Page) error {
	for {
		current, err := page.URL(ctx)
		if err != nil {
			return auth.NewNetworkError("failed to read page location", err)
		}
		if !strings.Contains(current, m.opts.LoginPath) {
			m.opts.Logger.Info("form login completed", zap.String("url", current))
			return nil
		}

		select {
		case <-ctx.Done():
			return auth.NewTimeoutError(
				fmt.Sprintf("form login did not navigate off %s before the deadline", m.opts.LoginPath))
		case <-time.After(navigationPollInterval):
		}
	}
}
