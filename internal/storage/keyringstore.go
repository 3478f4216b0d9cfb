// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package storage

import (
	"errors"
	"sync"

	"github.com/99designs/keyring"

	"casedesk/cli/internal/xdg"
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "casedesk"

// Keyring is a Store backed by the OS keychain/credential manager, with an
// encrypted-file backend as a fallback on platforms without a native store.
type Keyring struct {
	mu   sync.Mutex
	ring keyring.Keyring
}

// OpenKeyring opens the OS keyring for casedesk. Native platform backends are
// preferred; the file backend under the XDG state dir is the last resort so
// the client still works on headless Linux.
func OpenKeyring() (*Keyring, error) {
	stateDir, err := xdg.StateDir()
	if err != nil {
		return nil, err
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName: ServiceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.WinCredBackend,
			keyring.SecretServiceBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		PassPrefix:               ServiceName,
		WinCredPrefix:            ServiceName,
		FileDir:                  stateDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(ServiceName),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, err
	}

	return &Keyring{ring: ring}, nil
}

// Get reads a key from the keyring. A missing key yields ("", nil).
func (k *Keyring) Get(key string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	item, err := k.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return string(item.Data), nil
}

// Set writes a key to the keyring.
func (k *Keyring) Set(key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.ring.Set(keyring.Item{Key: key, Data: []byte(value)})
}

// Delete removes a key from the keyring. Deleting a missing key is a no-op.
func (k *Keyring) Delete(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}
