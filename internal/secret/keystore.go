package secret

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/99designs/keyring"
)

const (
	keychainService = "ronexport"
	apiKeyRef       = keychainService + ".api-key"
)

// ErrNotFound is returned when no API key has been stored.
var ErrNotFound = errors.New("api key not set")

// Keystore wraps OS keychain access for the ronin.rest API key.
type Keystore struct {
	ring keyring.Keyring
}

// New wraps an already opened keyring (useful for tests).
func New(ring keyring.Keyring) *Keystore {
	return &Keystore{ring: ring}
}

// DefaultKeystore returns a keystore backed by the OS keychain, falling back
// to an encrypted file under dir when no keychain is available.
func DefaultKeystore(dir string) *Keystore {
	cfg := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
		FileDir:                  dir,
		FilePasswordFunc:         keyring.TerminalPrompt,
	}

	// On Linux without a GUI, fall back to file-based storage.
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		ring, _ = keyring.Open(keyring.Config{
			ServiceName:      keychainService,
			AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
			FileDir:          dir,
			FilePasswordFunc: keyring.TerminalPrompt,
		})
	}

	return &Keystore{ring: ring}
}

// SetAPIKey stores key, replacing any previous one.
func (k *Keystore) SetAPIKey(key string) error {
	if k.ring == nil {
		return fmt.Errorf("keystore not available")
	}
	err := k.ring.Set(keyring.Item{
		Key:   apiKeyRef,
		Data:  []byte(key),
		Label: "ronexport API key",
	})
	if err != nil {
		return fmt.Errorf("keychain store: %w", err)
	}
	return nil
}

// APIKey returns the stored key or ErrNotFound.
func (k *Keystore) APIKey() (string, error) {
	if k.ring == nil {
		return "", ErrNotFound
	}
	item, err := k.ring.Get(apiKeyRef)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keychain retrieve: %w", err)
	}
	return string(item.Data), nil
}

// DeleteAPIKey removes the stored key. Deleting a missing key is not an error.
func (k *Keystore) DeleteAPIKey() error {
	if k.ring == nil {
		return nil
	}
	err := k.ring.Remove(apiKeyRef)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}

// ResolveAPIKey picks the key to use: a non-empty env value wins, then the
// keychain. A missing key is not an error; the public API works without one.
func (k *Keystore) ResolveAPIKey(envValue string) (string, error) {
	if envValue != "" {
		return envValue, nil
	}
	key, err := k.APIKey()
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return key, err
}
