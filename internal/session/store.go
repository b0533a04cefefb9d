package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/habitrack/internal/constants"
)

var (
	// ErrNoToken is returned when no session token is stored
	ErrNoToken = errors.New("not logged in")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// TokenStore persists the bearer token between runs.
type TokenStore interface {
	Get() (string, error)
	Set(token string) error
	Delete() error
}

// KeyringStore keeps the token in the OS keyring under a fixed service/user.
type KeyringStore struct {
	Service string
	User    string
}

// NewKeyringStore returns a store using the application's keyring entry.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{Service: constants.AppName, User: constants.DefaultKeyringUser}
}

func (k *KeyringStore) Get() (string, error) {
	token, err := keyring.Get(k.Service, k.User)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return token, nil
}

func (k *KeyringStore) Set(token string) error {
	if token == "" {
		return errors.New("session token cannot be empty")
	}
	if err := keyring.Set(k.Service, k.User, token); err != nil {
		return fmt.Errorf("failed to store session token in keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Delete() error {
	err := keyring.Delete(k.Service, k.User)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNoToken
		}
		return fmt.Errorf("failed to delete session token from keyring: %w", err)
	}
	return nil
}

// IsAvailable checks if the OS keyring is usable on this system.
func (k *KeyringStore) IsAvailable() bool {
	_, err := keyring.Get(k.Service, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}

// MemoryStore keeps the token in process memory only.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (m *MemoryStore) Get() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", ErrNoToken
	}
	return m.token, nil
}

func (m *MemoryStore) Set(token string) error {
	if token == "" {
		return errors.New("session token cannot be empty")
	}
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return ErrNoToken
	}
	m.token = ""
	return nil
}
