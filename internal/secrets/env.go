package secrets

import (
	"context"
	"fmt"
	"os"
)

// DefaultEnvPrefix is the default prefix for environment variable secrets.
const DefaultEnvPrefix = "HARNESS_SECRET_"

// EnvProvider reads secrets from environment variables. The path "PASSWORD"
// maps to the variable "{prefix}PASSWORD".
type EnvProvider struct {
	prefix string
}

// NewEnvProvider creates an environment variable provider. An empty prefix
// falls back to DefaultEnvPrefix.
func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return &EnvProvider{prefix: prefix}
}

// GetCredential returns the value of the prefixed environment variable.
func (p *EnvProvider) GetCredential(_ context.Context, path string) (string, error) {
	value, ok := os.LookupEnv(p.prefix + path)
	if !ok {
		return "", fmt.Errorf("secret %s%s is not set", p.prefix, path)
	}
	return value, nil
}
