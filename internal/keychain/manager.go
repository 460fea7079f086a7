// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe keychain operations for p4go.
// This module manages all interactions with the OS keychain/credential store,
// storing the passwords and login tickets of each server and user so that
// sessions can authenticate without prompting.
//
// The package supports macOS Keychain, Windows Credential Manager and the
// Secret Service on Linux, with thread-safe operations and proper error handling.
package keychain

import (
	"errors"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

// Global keychain manager instance
var (
	globalManager *Manager
	globalError   error
	mu            sync.Mutex
)

// Manager provides centralized, thread-safe operations for the OS keychain.
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
const ServiceName = "p4go"

// Key prefixes used for storing secrets in the OS keychain.
const (
	prefixPassword = "password"
	prefixTicket   = "ticket"
)

// ErrNotFound is returned when no secret is stored for a server and user.
var ErrNotFound = errors.New("no secret stored")

// key names one secret of one user on one server.
func key(prefix, port, user string) string {
	return prefix + ":" + port + ":" + user
}

// NewManager creates a new keychain manager with the OS keyring initialized.
func NewManager() (*Manager, error) {
	// Try native security backend first on macOS
	if runtime.GOOS == "darwin" {
		backend, err := newSecurityBackend()
		if err == nil {
			return &Manager{backend: backend}, nil
		}
		// Fall through to keyring library if security command fails
	}

	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return NewManagerWithRing(ring), nil
}

// NewManagerWithRing wraps an already opened keyring.
func NewManagerWithRing(ring keyring.Keyring) *Manager {
	return &Manager{ring: ring}
}

// GetManager returns the global keychain manager instance.
// If not initialized, it will be created on first call.
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

// openRing opens the OS keyring using native platform backends only.
func openRing() (keyring.Keyring, error) {
	var allowedBackends []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		// Pass requires 'pass' utility installed: brew install pass
		allowedBackends = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowedBackends = []keyring.BackendType{keyring.WinCredBackend}
	case "linux":
		allowedBackends = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	default:
		return nil, errors.New("secure storage not supported on this OS")
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

func (m *Manager) set(k, v string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backend != nil {
		return m.backend.Set(k, v)
	}
	return m.ring.Set(keyring.Item{Key: k, Label: ServiceName + " " + k, Data: []byte(v)})
}

func (m *Manager) get(k string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.backend != nil {
		v, err := m.backend.Get(k)
		if err != nil || v == "" {
			return "", ErrNotFound
		}
		return v, nil
	}
	it, err := m.ring.Get(k)
	if errors.Is(err, keyring.ErrKeyNotFound) || (err == nil && len(it.Data) == 0) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(it.Data), nil
}

func (m *Manager) remove(k string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backend != nil {
		_ = m.backend.Delete(k)
		return
	}
	_ = m.ring.Remove(k)
}

// SavePassword stores the password of user on the server at port.
// This method is thread-safe.
func (m *Manager) SavePassword(port, user, password string) error {
	return m.set(key(prefixPassword, port, user), password)
}

// LoadPassword retrieves a stored password; ErrNotFound when there is none.
// This method is thread-safe.
func (m *Manager) LoadPassword(port, user string) (string, error) {
	return m.get(key(prefixPassword, port, user))
}

// SaveTicket stores a login ticket issued by the server at port.
// This method is thread-safe.
func (m *Manager) SaveTicket(port, user, ticket string) error {
	return m.set(key(prefixTicket, port, user), ticket)
}

// LoadTicket retrieves a stored ticket; ErrNotFound when there is none.
// This method is thread-safe.
func (m *Manager) LoadTicket(port, user string) (string, error) {
	return m.get(key(prefixTicket, port, user))
}

// Credential returns the ticket for port and user, falling back to the
// stored password.
func (m *Manager) Credential(port, user string) (string, error) {
	if t, err := m.LoadTicket(port, user); err == nil {
		return t, nil
	}
	return m.LoadPassword(port, user)
}

// Clear removes every secret stored for user on the server at port.
// This method is thread-safe.
func (m *Manager) Clear(port, user string) {
	m.remove(key(prefixPassword, port, user))
	m.remove(key(prefixTicket, port, user))
}
