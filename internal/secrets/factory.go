package secrets

import (
	"fmt"

	"go.uber.org/zap"
)

// Provider source identifiers.
const (
	SourceEnv   = "env"
	SourceVault = "vault"
)

// FactoryConfig selects and configures a provider.
type FactoryConfig struct {
	// Source is "env" or "vault".
	Source string

	// EnvPrefix overrides the env provider's prefix.
	EnvPrefix string

	// VaultAddress, VaultToken, and VaultMount configure the Vault
	// provider.
	VaultAddress string
	VaultToken   string
	VaultMount   string

	Logger *zap.Logger
}

// NewProvider creates the provider selected by cfg.Source. An unrecognized
// source is a configuration error.
func NewProvider(cfg FactoryConfig) (Provider, error) {
	switch cfg.Source {
	case SourceEnv:
		return NewEnvProvider(cfg.EnvPrefix), nil
	case SourceVault:
		return NewVaultProvider(VaultProviderConfig{
			Address: cfg.VaultAddress,
			Token:   cfg.VaultToken,
			Mount:   cfg.VaultMount,
			Logger:  cfg.Logger,
		})
	default:
		return nil, fmt.Errorf("unknown secrets source %q (known sources: env, vault)", cfg.Source)
	}
}
