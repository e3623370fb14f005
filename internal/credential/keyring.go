package credential

import (
	"fmt"
	"os"

	"github.com/99designs/keyring"
)

const serviceName = "workdesk"

// TokenKey is the keyring entry holding the API bearer token.
const TokenKey = "api-token"

// UserIDKey and DisplayNameKey hold the viewer's identity from the
// last successful login, so a saved token can be reused without a
// fresh login round trip.
const (
	UserIDKey      = "user-id"
	DisplayNameKey = "display-name"
)

// envToken overrides the keyring when set, for scripted environments
// without a secret store.
const envToken = "WORKDESK_TOKEN"

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/workdesk/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("workdesk-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring. The
// token key honors the WORKDESK_TOKEN environment variable first.
func Get(key string) (string, error) {
	if key == TokenKey {
		if tok := os.Getenv(envToken); tok != "" {
			return tok, nil
		}
	}

	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
