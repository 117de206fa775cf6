// Package config holds the harness configuration: target endpoints,
// strategy selection, retry/timeout policy, and collaborator settings.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/nutrilog/authharness/internal/resilience"
)

// Environment variables recognized by FromEnv.
const (
	EnvBaseURL          = "HARNESS_BASE_URL"
	EnvStrategy         = "AUTH_STRATEGY"
	EnvFallbackStrategy = "AUTH_FALLBACK_STRATEGY"
	EnvStorageStatePath = "HARNESS_STORAGE_STATE"
	EnvBrowserWS        = "HARNESS_BROWSER_WS"
)

// Config is the harness configuration. Every recognized option and its
// default is explicit; Validate applies defaults and rejects invalid values
// at the boundary.
type Config struct {
	// BaseURL is the target application's API base URL.
	BaseURL string `yaml:"baseUrl"`

	// Origin is the target application's browser origin. Defaults to
	// BaseURL.
	Origin string `yaml:"origin"`

	// LoginPath is the path of the login page. Default "/login".
	LoginPath string `yaml:"loginPath"`

	// ProtectedPath is a path requiring authentication. Default "/diary".
	ProtectedPath string `yaml:"protectedPath"`

	// StorageStatePath is where session snapshots are written.
	// Default ".auth/storage-state.json".
	StorageStatePath string `yaml:"storageStatePath"`

	// Strategy selects the authentication method ("jwt", "login",
	// "ui-login"). Default "jwt".
	Strategy string `yaml:"strategy"`

	// FallbackStrategy, when set, wraps Strategy in a fallback chain.
	FallbackStrategy string `yaml:"fallbackStrategy"`

	// Retry is the retry policy for API calls.
	Retry RetryConfig `yaml:"retry"`

	// TimeoutMs is the per-attempt deadline in milliseconds. Default 10000.
	TimeoutMs int `yaml:"timeoutMs"`

	// Browser configures the automation collaborator.
	Browser BrowserConfig `yaml:"browser"`

	// Credentials configures how the test-account credentials are sourced.
	Credentials CredentialsConfig `yaml:"credentials"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`
}

// RetryConfig is the YAML shape of the retry policy, with delays in
// milliseconds. A zero maxDelayMs means unbounded backoff.
type RetryConfig struct {
	MaxRetries        int     `yaml:"maxRetries"`
	InitialDelayMs    int     `yaml:"initialDelayMs"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`
	MaxDelayMs        int     `yaml:"maxDelayMs"`
}

// ToResilience converts the YAML shape into the resilience policy value.
func (r RetryConfig) ToResilience() resilience.Config {
	return resilience.Config{
		MaxRetries:        r.MaxRetries,
		InitialDelay:      time.Duration(r.InitialDelayMs) * time.Millisecond,
		BackoffMultiplier: r.BackoffMultiplier,
		MaxDelay:          time.Duration(r.MaxDelayMs) * time.Millisecond,
	}
}

// BrowserConfig configures the browser collaborator.
type BrowserConfig struct {
	// WebSocketURL is the DevTools websocket endpoint of a running
	// Chromium instance.
	WebSocketURL string `yaml:"webSocketUrl"`
}

// CredentialsConfig configures credential sourcing.
type CredentialsConfig struct {
	// Source is "generated", "env", or "vault". Default "generated".
	Source string `yaml:"source"`

	// Path is the provider-specific lookup path (env variable name or
	// Vault secret path).
	Path string `yaml:"path"`

	// Vault configures the Vault provider.
	Vault VaultConfig `yaml:"vault"`
}

// VaultConfig configures the Vault secrets provider.
type VaultConfig struct {
	Address string `yaml:"address"`
	Token   string `yaml:"token"`
	Mount   string `yaml:"mount"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn, or error. Default "info".
	Level string `yaml:"level"`

	// Format is json or console. Default "console".
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		BaseURL:          "http://localhost:3000",
		LoginPath:        "/login",
		ProtectedPath:    "/diary",
		StorageStatePath: ".auth/storage-state.json",
		Strategy:         "jwt",
		Retry: RetryConfig{
			MaxRetries:        resilience.DefaultMaxRetries,
			InitialDelayMs:    int(resilience.DefaultInitialDelay.Milliseconds()),
			BackoffMultiplier: resilience.DefaultBackoffMultiplier,
		},
		TimeoutMs:        10000,
		Credentials:      CredentialsConfig{Source: "generated"},
		Log:              LogConfig{Level: "info", Format: "console"},
	}
}

// FromEnv applies environment overrides on top of the config. The strategy
// selection honors AUTH_STRATEGY; an unrecognized value surfaces later as a
// configuration error from the registry, not an authentication error.
func (c *Config) FromEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvStrategy); v != "" {
		c.Strategy = v
	}
	if v := os.Getenv(EnvFallbackStrategy); v != "" {
		c.FallbackStrategy = v
	}
	if v := os.Getenv(EnvStorageStatePath); v != "" {
		c.StorageStatePath = v
	}
	if v := os.Getenv(EnvBrowserWS); v != "" {
		c.Browser.WebSocketURL = v
	}
}

// Validate applies defaults and rejects invalid values.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("config: baseUrl is required")
	}
	if c.Origin == "" {
		c.Origin = c.BaseURL
	}
	if c.LoginPath == "" {
		c.LoginPath = "/login"
	}
	if c.ProtectedPath == "" {
		c.ProtectedPath = "/diary"
	}
	if c.Strategy == "" {
		c.Strategy = "jwt"
	}
	if c.TimeoutMs <= 0 {
		c.TimeoutMs = 10000
	}
	if c.Retry == (RetryConfig{}) {
		c.Retry = Default().Retry
	}
	if err := c.Retry.ToResilience().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Credentials.Source {
	case "", "generated", "env", "vault":
	default:
		return fmt.Errorf("config: unknown credentials source %q", c.Credentials.Source)
	}
	return nil
}

// Timeout returns the per-attempt deadline as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Run returns the composed retry/timeout policy for the resilience pipeline.
func (c *Config) Run() resilience.RunConfig {
	return resilience.RunConfig{
		Retry:   c.Retry.ToResilience(),
		Timeout: c.Timeout(),
	}
}
