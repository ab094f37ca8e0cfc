// Package session persists the authenticated bearer credential between CLI
// invocations, standing in for the browser session storage the sync
// coordinators read their token from.
package session

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "margsync"
	keyringUser    = "bearer-token"
)

// ErrNoSession indicates no credential has been persisted.
var ErrNoSession = errors.New("no persisted session")

// Storage reads and writes the bearer credential. The OS keyring is preferred;
// a mode-0600 file under the data directory serves headless environments where
// no keyring daemon is available.
type Storage struct {
	path string
}

// NewStorage builds session storage with the given file fallback path.
func NewStorage(path string) *Storage {
	return &Storage{path: path}
}

// Save persists the credential.
func (s *Storage) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is empty")
	}
	if err := keyring.Set(keyringService, keyringUser, token); err == nil {
		// Drop any stale file copy so Load never returns an old token.
		_ = os.Remove(s.path)
		return nil
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Load returns the persisted credential, or ErrNoSession.
func (s *Storage) Load() (string, error) {
	if token, err := keyring.Get(keyringService, keyringUser); err == nil {
		token = strings.TrimSpace(token)
		if token != "" {
			return token, nil
		}
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("read session file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoSession
	}
	return token, nil
}

// Clear removes the persisted credential from both backends.
func (s *Storage) Clear() error {
	keyringErr := keyring.Delete(keyringService, keyringUser)
	if keyringErr != nil && !errors.Is(keyringErr, keyring.ErrNotFound) {
		keyringErr = fmt.Errorf("clear keyring entry: %w", keyringErr)
	} else {
		keyringErr = nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return keyringErr
}
