// Package credentials stores agent secrets. The system keyring is tried
// first; when it is unavailable (headless hosts, missing DBus) the store
// falls back to an age-encrypted file vault. Callers never learn which
// backend served a request.
package credentials

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

// Service is the keyring service name under which credentials are filed.
const Service = "deskagent"

// systemKeyring narrows the keyring API so tests can substitute a fake.
type systemKeyring interface {
	Set(service, user, password string) error
	Get(service, user string) (string, error)
}

type osKeyring struct{}

func (osKeyring) Set(service, user, password string) error { return keyring.Set(service, user, password) }
func (osKeyring) Get(service, user string) (string, error) { return keyring.Get(service, user) }

// Store persists credentials in the system keyring with an encrypted-file
// fallback. Safe for use by a single logical caller; the vault file is
// rewritten atomically on every Set.
type Store struct {
	ring   systemKeyring
	vault  *fileVault
	logger *slog.Logger
}

// NewStore creates a credential store with its fallback vault rooted at
// dir (defaults to ~/.deskagent).
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".deskagent")
	}
	vault, err := newFileVault(dir)
	if err != nil {
		return nil, err
	}
	return &Store{ring: osKeyring{}, vault: vault, logger: logger}, nil
}

// Set stores a credential under id, preferring the system keyring.
func (s *Store) Set(id, value string) error {
	if id == "" {
		return errors.New("credential id is required")
	}
	if err := s.ring.Set(Service, id, value); err == nil {
		return nil
	} else {
		s.log().Debug("keyring unavailable, using encrypted file fallback", "error", err)
	}
	return s.vault.set(id, value)
}

// Get retrieves a credential. The second return is false when no backend
// holds the id.
func (s *Store) Get(id string) (string, bool, error) {
	if id == "" {
		return "", false, errors.New("credential id is required")
	}
	value, err := s.ring.Get(Service, id)
	if err == nil && value != "" {
		return value, true, nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		s.log().Debug("keyring unavailable, checking encrypted file fallback", "error", err)
	}
	return s.vault.get(id)
}

func (s *Store) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}
