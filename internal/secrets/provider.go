// Package secrets sources the test-account credentials when the harness
// runs against shared staging targets and cannot simply generate a fresh
// account per run.
package secrets

import "context"

// Provider resolves a named credential.
type Provider interface {
	// GetCredential returns the secret value stored under path.
	GetCredential(ctx context.Context, path string) (string, error)
}
