// Package tokenstore is the thin OAuth token-cache collaborator excluded
// from the core at spec.md §1 ("OAuth token storage") and specified only at
// its interface: a file-backed cache for the oauth2.Token the Sheets/Gmail
// clients share, grounded on the project-jarvis OAuth flow's credential
// handling (internal/auth/auth.go) adapted from a web session store to a
// single-operator CLI token cache.
package tokenstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// Store reads and writes a single cached OAuth token to a JSON file.
type Store struct {
	path string
}

// New builds a Store backed by path.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the cached token. A missing file is reported as a plain error;
// callers treat it as "no cached credentials, run init".
func (s *Store) Load() (*oauth2.Token, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read token cache %s: %w", s.path, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("parse token cache %s: %w", s.path, err)
	}
	return &tok, nil
}

// Save writes tok to the cache file, creating its parent directory if
// needed, with file permissions restricted to the owner since the token
// grants live access to the operator's mail and spreadsheet.
func (s *Store) Save(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token cache directory: %w", err)
	}
	raw, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write token cache %s: %w", s.path, err)
	}
	return nil
}
