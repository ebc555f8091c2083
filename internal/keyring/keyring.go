package keyring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/barberbook/internal/constants"
)

var (
	// ErrNotFound is returned when no secret is stored under the requested name
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Secret names a credential kept in the OS keyring.
type Secret string

const (
	// PostgresConnection is the PostgreSQL connection string (without password).
	PostgresConnection Secret = constants.KeyringUserPostgres
	// SheetsCredentials is the Google service account JSON key.
	SheetsCredentials Secret = constants.KeyringUserSheets
)

// Secrets lists every secret the application knows about.
var Secrets = []Secret{PostgresConnection, SheetsCredentials}

// ParseSecret accepts the secret name or a short alias ("postgres", "sheets").
func ParseSecret(name string) (Secret, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", string(PostgresConnection):
		return PostgresConnection, nil
	case "sheets", string(SheetsCredentials):
		return SheetsCredentials, nil
	}
	return "", fmt.Errorf("unknown secret %q (use postgres or sheets)", name)
}

// Get retrieves a secret from the OS keyring.
// Returns ErrNotFound if nothing is stored.
func Get(s Secret) (string, error) {
	v, err := keyring.Get(constants.AppName, string(s))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return v, nil
}

// Set stores a secret in the OS keyring.
func Set(s Secret, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", s)
	}
	if err := keyring.Set(constants.AppName, string(s), value); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

// Delete removes a secret from the OS keyring.
func Delete(s Secret) error {
	if err := keyring.Delete(constants.AppName, string(s)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
