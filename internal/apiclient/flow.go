package apiclient

import (
	"context"

	"go.uber.org/zap"

	"github.com/nutrilog/authharness/internal/auth"
	"github.com/nutrilog/authharness/internal/resilience"
)

// RegisterAndLogin is the API half shared by the token-based strategies:
// seed the account, then exchange credentials for a token, each call running
// under the retry/timeout pipeline.
func RegisterAndLogin(
	ctx context.Context,
	client *Client,
	creds auth.Credentials,
	run resilience.RunConfig,
	logger *zap.Logger,
) (*LoginResponse, error) {
	_, err := resilience.RetryWithTimeoutAndLogging(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, client.Register(ctx, creds)
	}, run, "register", logger)
	if err != nil {
		return nil, err
	}

	return resilience.RetryWithTimeoutAndLogging(ctx, func(ctx context.Context) (*LoginResponse, error) {
		return client.Login(ctx, creds)
	}, run, "login", logger)
}
