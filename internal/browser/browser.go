// Package browser is the boundary to the browser-automation collaborator.
//
// The harness consumes the browser as an opaque capability: navigate,
// evaluate script, capture persisted session state. The concrete
// implementation speaks the Chrome DevTools Protocol over a websocket, but
// authentication methods only ever see these interfaces.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Browser creates isolated browsing contexts.
type Browser interface {
	// NewContext creates a fresh, isolated browsing context.
	NewContext(ctx context.Context) (Context, error)
}

// Context is an isolated browsing context owning its own cookies and
// storage. It is exclusively owned by the one authentication method that
// created it and must be closed on every exit path.
type Context interface {
	// NewPage opens a page in the context.
	NewPage(ctx context.Context) (Page, error)

	// StorageState captures the context's cookies and per-origin local
	// storage as a persisted session snapshot.
	StorageState(ctx context.Context) (*StorageState, error)

	// Close releases the context and every page in it.
	Close() error
}

// Page is a single tab.
type Page interface {
	// Navigate loads the given URL and waits for the document to settle.
	Navigate(ctx context.Context, url string) error

	// Evaluate runs a script in the page and returns its JSON value.
	Evaluate(ctx context.Context, script string) (json.RawMessage, error)

	// Fill sets the value of the element matching the selector.
	Fill(ctx context.Context, selector, value string) error

	// Click clicks the element matching the selector.
	Click(ctx context.Context, selector string) error

	// URL returns the page's current location.
	URL(ctx context.Context) (string, error)
}

// Cookie is one persisted cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// StorageEntry is one local-storage key/value pair.
type StorageEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// OriginState is the local storage persisted for one origin.
type OriginState struct {
	Origin       string         `json:"origin"`
	LocalStorage []StorageEntry `json:"localStorage"`
}

// StorageState is the persisted session snapshot: cookies plus per-origin
// local storage. Later test runs load it to skip interactive login.
type StorageState struct {
	Cookies []Cookie      `json:"cookies"`
	Origins []OriginState `json:"origins"`
}

// Save writes the snapshot to the given path, creating parent directories
// as needed.
func (s *StorageState) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create storage state directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode storage state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write storage state to %s: %w", path, err)
	}
	return nil
}

// LoadStorageState reads a snapshot written by Save.
func LoadStorageState(path string) (*StorageState, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from harness config
	if err != nil {
		return nil, fmt.Errorf("failed to read storage state from %s: %w", path, err)
	}
	var state StorageState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode storage state from %s: %w", path, err)
	}
	return &state, nil
}
