package secret

import (
	"os"
	"runtime"
)

// TablePasswordKey is the secret holding the managed-table password.
const TablePasswordKey = "table_password"

// SecretStore stores sensitive values such as the table password.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// Default returns the Keychain store on macOS and the env store elsewhere.
func Default() SecretStore {
	if runtime.GOOS == "darwin" {
		if _, err := os.Stat("/usr/bin/security"); err == nil {
			return NewKeychainStore()
		}
	}
	return NewEnvStore("DATADESK_")
}
