// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain stores the private key passphrase in the OS keychain or
// credential store, so key-pair sessions can be opened without exporting
// SNOWFLAKE_PRIVATE_KEY_PASSPHRASE into every shell.
//
// macOS uses the native security command when present; other platforms go
// through the keyring library. All Manager methods are safe for concurrent use.
package keychain

import (
	"errors"
	"runtime"
	"strings"
	"sync"

	"github.com/99designs/keyring"
)

// Global keychain manager instance
var (
	globalManager *Manager
	globalError   error
	mu            sync.Mutex
)

// ErrEmpty is returned when a stored value exists but is empty.
var ErrEmpty = errors.New("empty keychain value")

// Manager provides thread-safe operations on the OS keychain.
type Manager struct {
	mu      sync.RWMutex
	ring    keyring.Keyring
	backend keychainBackend
}

// keychainBackend defines the interface for keychain operations.
type keychainBackend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "snowdemo"

// KeyPrivateKeyPassphrase is the entry holding the private key passphrase.
const KeyPrivateKeyPassphrase = "private_key_passphrase"

// NewManager creates a new keychain manager with the OS keyring initialized.
func NewManager() (*Manager, error) {
	if runtime.GOOS == "darwin" {
		backend, err := newSecurityBackend()
		if err == nil {
			return &Manager{backend: backend}, nil
		}
	}

	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return &Manager{ring: ring}, nil
}

// NewWithKeyring wraps an already opened keyring.
func NewWithKeyring(ring keyring.Keyring) *Manager {
	return &Manager{ring: ring}
}

// GetManager returns the global keychain manager instance.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}

	globalManager, globalError = NewManager()
	if globalError != nil {
		return nil, globalError
	}
	return globalManager, nil
}

// openRing opens the OS keyring using native platform backends only; there
// is no encrypted-file fallback.
func openRing() (keyring.Keyring, error) {
	var allowedBackends []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		// pass is the fallback on macOS versions where the Keychain API refuses unsigned binaries.
		allowedBackends = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowedBackends = []keyring.BackendType{keyring.WinCredBackend}
	case "linux":
		allowedBackends = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	default:
		return nil, errors.New("secure storage not supported on " + runtime.GOOS)
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowedBackends,
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, errors.New("macOS Keychain unavailable. On macOS 26.0+, install 'pass': brew install pass gnupg && gpg --generate-key && pass init <gpg-key-id>")
		}
		return nil, err
	}
	return ring, nil
}

// SavePassphrase stores the private key passphrase.
func (m *Manager) SavePassphrase(passphrase string) error {
	if passphrase == "" {
		return ErrEmpty
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		return m.backend.Set(KeyPrivateKeyPassphrase, passphrase)
	}
	return m.ring.Set(keyring.Item{
		Key:   KeyPrivateKeyPassphrase,
		Data:  []byte(passphrase),
		Label: ServiceName + " private key passphrase",
	})
}

// LoadPassphrase retrieves the private key passphrase.
func (m *Manager) LoadPassphrase() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var value string
	if m.backend != nil {
		v, err := m.backend.Get(KeyPrivateKeyPassphrase)
		if err != nil {
			return "", err
		}
		value = v
	} else {
		it, err := m.ring.Get(KeyPrivateKeyPassphrase)
		if err != nil {
			return "", err
		}
		value = string(it.Data)
	}
	if value == "" {
		return "", ErrEmpty
	}
	return value, nil
}

// ClearPassphrase removes the stored passphrase. A missing entry is not an error.
func (m *Manager) ClearPassphrase() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		return m.backend.Delete(KeyPrivateKeyPassphrase)
	}
	err := m.ring.Remove(KeyPrivateKeyPassphrase)
	if err != nil && (errors.Is(err, keyring.ErrKeyNotFound) || strings.Contains(err.Error(), "not found")) {
		return nil
	}
	return err
}

// Passphrase returns the stored passphrase, or "" when the keychain is
// unavailable or holds none. Unavailability is never an error for callers
// that only use the keychain as a fallback source.
func Passphrase() string {
	m, err := GetManager()
	if err != nil {
		return ""
	}
	p, err := m.LoadPassphrase()
	if err != nil {
		return ""
	}
	return p
}
