// Package harness wires the configured collaborators into an authentication
// method ready for a test run: API client, browser connection, credential
// sourcing, registry, and optional fallback chain.
package harness

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nutrilog/authharness/internal/apiclient"
	"github.com/nutrilog/authharness/internal/auth"
	"github.com/nutrilog/authharness/internal/auth/jwt"
	"github.com/nutrilog/authharness/internal/auth/login"
	"github.com/nutrilog/authharness/internal/auth/uilogin"
	"github.com/nutrilog/authharness/internal/browser"
	"github.com/nutrilog/authharness/internal/config"
	"github.com/nutrilog/authharness/internal/secrets"
)

// Harness owns the collaborators for one test run.
type Harness struct {
	cfg     *config.Config
	client  *apiclient.Client
	browser browser.Browser
	reg     *auth.Registry
	logger  *zap.Logger
}

// New builds a harness from validated configuration. The browser connection
// is established lazily by the methods that need one only when a
// browser-driven strategy is selected.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Harness, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := apiclient.New(apiclient.Options{
		BaseURL: cfg.BaseURL,
		Logger:  logger,
	})

	h := &Harness{
		cfg:    cfg,
		client: client,
		reg:    auth.NewRegistry(logger),
		logger: logger,
	}

	if needsBrowser(cfg) {
		if cfg.Browser.WebSocketURL == "" {
			return nil, fmt.Errorf("strategy %q needs a browser but no websocket URL is configured", cfg.Strategy)
		}
		cdp, err := browser.Connect(ctx, cfg.Browser.WebSocketURL, logger)
		if err != nil {
			return nil, err
		}
		h.browser = cdp
	}

	h.registerBuiltins()
	return h, nil
}

// needsBrowser reports whether the selected strategies drive a browser.
func needsBrowser(cfg *config.Config) bool {
	for _, s := range []string{cfg.Strategy, cfg.FallbackStrategy} {
		if s == string(auth.TypeJWT) || s == string(auth.TypeUILogin) {
			return true
		}
	}
	return false
}

// registerBuiltins registers the built-in strategies. Registration is
// last-write-wins, so embedding harnesses can overwrite any of these with
// their own implementation afterwards.
func (h *Harness) registerBuiltins() {
	h.reg.Register(auth.TypeJWT, func() (auth.Method, error) {
		return jwt.New(jwt.Options{
			Client:           h.client,
			Browser:          h.browser,
			Origin:           h.cfg.Origin,
			LoginPath:        h.cfg.LoginPath,
			ProtectedPath:    h.cfg.ProtectedPath,
			StorageStatePath: h.cfg.StorageStatePath,
			Run:              h.cfg.Run(),
			Logger:           h.logger,
		}), nil
	})
	h.reg.Register(auth.TypeLogin, func() (auth.Method, error) {
		return login.New(login.Options{
			Client: h.client,
			Run:    h.cfg.Run(),
			Logger: h.logger,
		}), nil
	})
	h.reg.Register(auth.TypeUILogin, func() (auth.Method, error) {
		return uilogin.New(uilogin.Options{
			Client:    h.client,
			Browser:   h.browser,
			Origin:    h.cfg.Origin,
			LoginPath: h.cfg.LoginPath,
			Run:       h.cfg.Run(),
			Logger:    h.logger,
		}), nil
	})
}

// Registry exposes the method registry for additional registrations.
func (h *Harness) Registry() *auth.Registry {
	return h.reg
}

// Method resolves the configured strategy, wrapping it in a fallback chain
// when a fallback strategy is configured.
func (h *Harness) Method() (auth.Method, error) {
	primary := auth.MethodType(h.cfg.Strategy)
	if h.cfg.FallbackStrategy == "" {
		return h.reg.Create(primary)
	}
	return h.reg.CreateWithFallback(primary, auth.MethodType(h.cfg.FallbackStrategy))
}

// Credentials resolves the test-account credentials per the configured
// source: freshly generated, or looked up through a secrets provider for
// shared staging accounts.
func (h *Harness) Credentials(ctx context.Context) (auth.Credentials, error) {
	src := h.cfg.Credentials.Source
	if src == "" || src == "generated" {
		return auth.GenerateCredentials(), nil
	}

	provider, err := secrets.NewProvider(secrets.FactoryConfig{
		Source:       src,
		VaultAddress: h.cfg.Credentials.Vault.Address,
		VaultToken:   h.cfg.Credentials.Vault.Token,
		VaultMount:   h.cfg.Credentials.Vault.Mount,
		Logger:       h.logger,
	})
	if err != nil {
		return auth.Credentials{}, err
	}

	password, err := provider.GetCredential(ctx, credentialPath(src, h.cfg.Credentials.Path, "password"))
	if err != nil {
		return auth.Credentials{}, err
	}
	email, err := provider.GetCredential(ctx, credentialPath(src, h.cfg.Credentials.Path, "email"))
	if err != nil {
		return auth.Credentials{}, err
	}
	return auth.Credentials{Email: email, Password: password}, nil
}

// credentialPath builds the provider-specific lookup path for one field:
// "PATH_FIELD" environment variables for env, "path#field" for vault.
func credentialPath(source, base, field string) string {
	if source == secrets.SourceEnv {
		return base + "_" + strings.ToUpper(field)
	}
	return base + "#" + field
}

// Close releases the browser connection, if one was opened.
func (h *Harness) Close() error {
	if cdp, ok := h.browser.(*browser.CDP); ok {
		return cdp.Close()
	}
	return nil
}
