// Package credentials stores the controller password in the OS keyring.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/xabinapal/unifi-vpn/internal/utils"
)

const (
	// ServiceName is the keyring service all passwords are stored under.
	ServiceName = "unifi-vpn"

	// TestKeyringEnvVar, when set to a directory, selects the file store.
	// Tests only.
	TestKeyringEnvVar = "UNIFI_VPN_TEST_KEYRING_DIR"
)

var (
	// ErrKeyringUnavailable is returned when no secure keyring is available.
	ErrKeyringUnavailable = errors.New("secure keyring is not available on this system")
	// ErrPasswordNotFound is returned when no password is stored for a key.
	ErrPasswordNotFound = errors.New("password not found in keyring")
	// ErrKeyringAccessDenied is returned when access to the keyring is denied.
	ErrKeyringAccessDenied = errors.New("access to keyring denied")
	// ErrEmptyKey is returned for operations without a key.
	ErrEmptyKey = errors.New("key cannot be empty")
)

// Store is a password storage backend.
type Store interface {
	// Set stores a password for the given key.
	Set(key, password string) error
	// Get retrieves the password for the given key.
	Get(key string) (string, error)
	// Delete removes the password for the given key.
	Delete(key string) error
	// IsAvailable checks if the backend can be used.
	IsAvailable() error
}

// Key builds the keyring key for a controller account.
func Key(username, controllerURL string) string {
	if username == "" || controllerURL == "" {
		return ""
	}
	return username + "@" + strings.TrimRight(controllerURL, "/")
}

// DefaultStore returns the OS keyring, or a file store when
// UNIFI_VPN_TEST_KEYRING_DIR is set.
func DefaultStore() Store {
	if testDir := os.Getenv(TestKeyringEnvVar); testDir != "" {
		fileStore, err := NewFileStore(testDir)
		if err == nil {
			return fileStore
		}
	}
	return &osKeyring{}
}

type osKeyring struct{}

// IsAvailable probes the keyring with a lookup that is expected to miss.
func (k *osKeyring) IsAvailable() error {
	_, err := gokeyring.Get(ServiceName, "__availability_check__")
	if err == nil || errors.Is(err, gokeyring.ErrNotFound) {
		return nil
	}

	errStr := err.Error()
	switch runtime.GOOS {
	case "linux":
		if utils.ContainsAny(errStr, "secret service", "dbus", "org.freedesktop.secrets") {
			return fmt.Errorf("%w: D-Bus secret service not available - please install and start gnome-keyring, kwallet, or another secret service provider", ErrKeyringUnavailable)
		}
	case "darwin":
		if utils.ContainsAny(errStr, "keychain", "security") {
			return fmt.Errorf("%w: macOS Keychain not accessible", ErrKeyringUnavailable)
		}
	case "windows":
		if utils.ContainsAny(errStr, "credential", "wincred") {
			return fmt.Errorf("%w: Windows Credential Manager not accessible", ErrKeyringUnavailable)
		}
	}

	// Unknown probe errors: let the real operation report them.
	return nil
}

func (k *osKeyring) Set(key, password string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}
	if err := k.IsAvailable(); err != nil {
		return err
	}

	if err := gokeyring.Set(ServiceName, key, password); err != nil {
		return wrapKeyringError(err, "failed to store password")
	}
	return nil
}

func (k *osKeyring) Get(key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	if err := k.IsAvailable(); err != nil {
		return "", err
	}

	password, err := gokeyring.Get(ServiceName, key)
	if err != nil {
		if errors.Is(err, gokeyring.ErrNotFound) {
			return "", ErrPasswordNotFound
		}
		return "", wrapKeyringError(err, "failed to retrieve password")
	}
	return password, nil
}

func (k *osKeyring) Delete(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := k.IsAvailable(); err != nil {
		return err
	}

	if err := gokeyring.Delete(ServiceName, key); err != nil {
		if errors.Is(err, gokeyring.ErrNotFound) {
			return nil
		}
		return wrapKeyringError(err, "failed to delete password")
	}
	return nil
}

func wrapKeyringError(err error, context string) error {
	errStr := err.Error()

	if utils.ContainsAny(errStr, "denied", "permission", "not allowed", "unauthorized") {
		return fmt.Errorf("%w: %s: %v", ErrKeyringAccessDenied, context, err)
	}
	if utils.ContainsAny(errStr, "no keyring", "unavailable", "secret service") {
		return fmt.Errorf("%w: %s: %v", ErrKeyringUnavailable, context, err)
	}
	return fmt.Errorf("%s: %w", context, err)
}
