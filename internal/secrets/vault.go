package secrets

import (
	"context"
	"fmt"

	vaultapi "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// DefaultVaultMount is the default KV v2 mount.
const DefaultVaultMount = "secret"

// VaultProvider reads credentials from a Vault KV v2 mount. The path format
// is "path/to/secret#key".
type VaultProvider struct {
	client *vaultapi.Client
	mount  string
	logger *zap.Logger
}

// VaultProviderConfig configures the Vault provider.
type VaultProviderConfig struct {
	// Address is the Vault server address. Falls back to the standard
	// VAULT_ADDR environment handling of the Vault client.
	Address string

	// Token authenticates the client. Falls back to VAULT_TOKEN.
	Token string

	// Mount is the KV v2 mount. Default "secret".
	Mount string

	Logger *zap.Logger
}

// NewVaultProvider creates a Vault-backed credential provider.
func NewVaultProvider(cfg VaultProviderConfig) (*VaultProvider, error) {
	apiConfig := vaultapi.DefaultConfig()
	if cfg.Address != "" {
		apiConfig.Address = cfg.Address
	}

	client, err := vaultapi.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	mount := cfg.Mount
	if mount == "" {
		mount = DefaultVaultMount
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &VaultProvider{client: client, mount: mount, logger: logger}, nil
}

// GetCredential reads one key of a KV v2 secret. The path is
// "path/to/secret#key"; a missing "#key" suffix defaults to "password".
func (p *VaultProvider) GetCredential(ctx context.Context, path string) (string, error) {
	secretPath, key := splitSecretPath(path)

	secret, err := p.client.KVv2(p.mount).Get(ctx, secretPath)
	if err != nil {
		return "", fmt.Errorf("failed to read vault secret %s: %w", secretPath, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("vault secret %s not found", secretPath)
	}

	value, ok := secret.Data[key].(string)
	if !ok {
		return "", fmt.Errorf("vault secret %s has no string value under %q", secretPath, key)
	}

	p.logger.Debug("resolved credential from vault",
		zap.String("path", secretPath),
		zap.String("key", key),
	)
	return value, nil
}

func splitSecretPath(path string) (secretPath, key string) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '#' {
			return path[:i], path[i+1:]
		}
	}
	return path, "password"
}
