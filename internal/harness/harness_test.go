package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrilog/authharness/internal/auth"
	"github.com/nutrilog/authharness/internal/config"
)

func loginConfig() *config.Config {
	cfg := config.Default()
	cfg.Strategy = string(auth.TypeLogin)
	return cfg
}

func TestNew_RegistersBuiltins(t *testing.T) {
	t.Parallel()

	h, err := New(context.Background(), loginConfig(), nil)
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, []auth.MethodType{auth.TypeJWT, auth.TypeLogin, auth.TypeUILogin}, h.Registry().Known())
}

func TestNew_BrowserStrategyNeedsWebSocketURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"jwt primary", func(c *config.Config) { c.Strategy = string(auth.TypeJWT) }},
		{"ui-login primary", func(c *config.Config) { c.Strategy = string(auth.TypeUILogin) }},
		{"browser fallback", func(c *config.Config) {
			c.Strategy = string(auth.TypeLogin)
			c.FallbackStrategy = string(auth.TypeUILogin)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tt.mutate(cfg)
			_, err := New(context.Background(), cfg, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "needs a browser")
		})
	}
}

func TestHarness_Method(t *testing.T) {
	t.Parallel()

	h, err := New(context.Background(), loginConfig(), nil)
	require.NoError(t, err)
	defer h.Close()

	method, err := h.Method()
	require.NoError(t, err)
	assert.Equal(t, auth.TypeLogin, method.Type())
}

func TestHarness_MethodUnknownStrategy(t *testing.T) {
	t.Parallel()

	cfg := loginConfig()
	cfg.Strategy = "oauth"
	h, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer h.Close()

	_, err = h.Method()
	require.Error(t, err)

	var unknown *auth.UnknownMethodError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, auth.MethodType("oauth"), unknown.Key)
}

func TestHarness_MethodWithFallback(t *testing.T) {
	t.Parallel()

	cfg := loginConfig()
	cfg.FallbackStrategy = string(auth.TypeLogin)
	h, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer h.Close()

	method, err := h.Method()
	require.NoError(t, err)
	assert.Equal(t, auth.MethodType("login+login"), method.Type())
}

func TestHarness_GeneratedCredentials(t *testing.T) {
	t.Parallel()

	h, err := New(context.Background(), loginConfig(), nil)
	require.NoError(t, err)
	defer h.Close()

	creds, err := h.Credentials(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, creds.Email)
	assert.NotEmpty(t, creds.Password)

	// Every run gets a fresh account.
	again, err := h.Credentials(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, creds.Email, again.Email)
}

func TestHarness_EnvCredentials(t *testing.T) {
	t.Setenv("HARNESS_SECRET_E2E_ACCOUNT_EMAIL", "qa@nutrilog.test")
	t.Setenv("HARNESS_SECRET_E2E_ACCOUNT_PASSWORD", "hunter2")

	cfg := loginConfig()
	cfg.Credentials.Source = "env"
	cfg.Credentials.Path = "E2E_ACCOUNT"

	h, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer h.Close()

	creds, err := h.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "qa@nutrilog.test", creds.Email)
	assert.Equal(t, "hunter2", creds.Password)
}

func TestCredentialPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "E2E_ACCOUNT_PASSWORD", credentialPath("env", "E2E_ACCOUNT", "password"))
	assert.Equal(t, "e2e/accounts#email", credentialPath("vault", "e2e/accounts", "email"))
}
