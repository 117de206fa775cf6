// Package apiclient is the HTTP client for the target application's
// authentication API (registration and login endpoints).
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nutrilog/authharness/internal/auth"
	"github.com/nutrilog/authharness/internal/resilience"
)

// Default endpoint paths on the target application.
const (
	DefaultRegisterPath = "/api/auth/register"
	DefaultLoginPath    = "/api/auth/login"
)

// Options configures the client.
type Options struct {
	// BaseURL is the target application's base URL. Required.
	BaseURL string

	// RegisterPath and LoginPath override the default endpoint paths.
	RegisterPath string
	LoginPath    string

	// RequestTimeout bounds each HTTP request. Default 15s.
	RequestTimeout time.Duration

	// RequestsPerSecond throttles outgoing requests so the harness never
	// trips the target's own rate limiting. Default 10.
	RequestsPerSecond float64

	// BreakerThreshold is the consecutive transient-failure count that
	// opens the login circuit. Default 5.
	BreakerThreshold uint32

	Logger *zap.Logger
}

// LoginResponse is the decoded body of a successful login.
type LoginResponse struct {
	Token string         `json:"token"`
	User  map[string]any `json:"user"`
}

type apiBody struct {
	Token   string         `json:"token"`
	User    map[string]any `json:"user"`
	Message string         `json:"message"`
}

// Client talks to the target's auth endpoints. All calls are throttled by a
// shared rate limiter; login is additionally guarded by a circuit breaker so
// a flapping target fails fast instead of burning the whole retry budget.
type Client struct {
	baseURL      string
	registerPath string
	loginPath    string
	httpClient   *http.Client
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker
	logger       *zap.Logger
}

// New creates a client for the target's auth API.
func New(opts Options) *Client {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 10
	}
	if opts.BreakerThreshold == 0 {
		opts.BreakerThreshold = 5
	}
	if opts.RegisterPath == "" {
		opts.RegisterPath = DefaultRegisterPath
	}
	if opts.LoginPath == "" {
		opts.LoginPath = DefaultLoginPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "auth-login",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerThreshold
		},
		// Definitive rejections (401/403) are real responses from a
		// healthy target and must not open the circuit.
		IsSuccessful: func(err error) bool {
			return err == nil || !resilience.ClassifyRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("login circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		baseURL:      opts.BaseURL,
		registerPath: opts.RegisterPath,
		loginPath:    opts.LoginPath,
		httpClient:   &http.Client{Timeout: opts.RequestTimeout},
		limiter:      rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		breaker:      breaker,
		logger:       logger,
	}
}

// Register creates the test account. A conflict response means the account
// is already seeded and is treated as success.
func (c *Client) Register(ctx context.Context, creds auth.Credentials) error {
	body, status, err := c.post(ctx, c.registerPath, map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
		"username": creds.Username,
	})
	if err != nil {
		return err
	}
	if status == http.StatusConflict {
		c.logger.Debug("account already registered", zap.String("email", creds.Email))
		return nil
	}
	if authErr := c.responseError(status, body, "registration"); authErr != nil {
		return authErr
	}
	return nil
}

// Login exchanges credentials for a token and user record.
func (c *Client) Login(ctx context.Context, creds auth.Credentials) (*LoginResponse, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		body, status, err := c.post(ctx, c.loginPath, map[string]string{
			"email":    creds.Email,
			"password": creds.Password,
		})
		if err != nil {
			return nil, err
		}
		if authErr := c.responseError(status, body, "login"); authErr != nil {
			return nil, authErr
		}
		if body.Token == "" {
			return nil, auth.NewJWTError("login response carried no token", nil)
		}
		return &LoginResponse{Token: body.Token, User: body.User}, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, auth.NewNetworkError("login circuit breaker open", err)
		}
		return nil, err
	}
	return result.(*LoginResponse), nil
}

// post sends a JSON request and decodes the response body. Transport
// failures come back as network auth errors; HTTP status handling is the
// caller's concern.
func (c *Client) post(ctx context.Context, path string, payload map[string]string) (*apiBody, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, auth.NewNetworkError(fmt.Sprintf("request to %s failed", path), err)
	}
	defer resp.Body.Close() //nolint:errcheck

	var body apiBody
	if decodeErr := json.NewDecoder(resp.Body).Decode(&body); decodeErr != nil && resp.StatusCode < 300 {
		return nil, 0, auth.NewNetworkError(fmt.Sprintf("failed to decode response from %s", path), decodeErr)
	}
	return &body, resp.StatusCode, nil
}

// responseError translates a non-2xx status into a typed auth error.
func (c *Client) responseError(status int, body *apiBody, label string) *auth.Error {
	message := ""
	if body != nil {
		message = body.Message
	}
	return resilience.ErrorFromResponse(resilience.Response{
		Status: status,
		Data:   resilience.ResponseData{Message: message},
	}, label)
}
