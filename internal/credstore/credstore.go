// Package credstore persists the session credential between runs.
// The token lives in a single file under the user config directory and
// is written exclusively by the session store.
package credstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Load when no credential is persisted.
var ErrNotFound = errors.New("credstore: no stored credential")

const (
	appDir    = "abroad"
	tokenFile = "token"
)

// Store reads and writes the persisted credential file.
type Store struct {
	path string
}

// New creates a store backed by the given file path.
func New(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the standard credential location for the current
// user, e.g. ~/.config/abroad/token on Linux.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}
	return filepath.Join(dir, appDir, tokenFile), nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Save writes the token, creating parent directories as needed. The file
// is restricted to the owning user.
func (s *Store) Save(token string) error {
	if token == "" {
		return errors.New("credstore: refusing to save empty token")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating credential dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing credential: %w", err)
	}
	return nil
}

// Load returns the persisted token, or ErrNotFound when the file is
// absent or empty.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("reading credential: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

// Clear removes the persisted token. Clearing an absent credential is
// not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing credential: %w", err)
	}
	return nil
}

// Exists reports whether a non-empty credential is persisted.
func (s *Store) Exists() bool {
	_, err := s.Load()
	return err == nil
}
