package secret

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// keychainItemNotFound is the exit status of `security` for a missing item.
const keychainItemNotFound = 44

// runFunc runs the security tool and returns its stdout.
type runFunc func(args ...string) ([]byte, error)

func runSecurity(args ...string) ([]byte, error) {
	return exec.Command("security", args...).Output()
}

// KeychainStore keeps secrets as generic passwords in the macOS login
// keychain, one item per key under the "datadesk" service.
type KeychainStore struct {
	service string
	run     runFunc
}

// NewKeychainStore creates a KeychainStore backed by /usr/bin/security.
func NewKeychainStore() *KeychainStore {
	return &KeychainStore{service: "datadesk", run: runSecurity}
}

// Set stores value, replacing any existing item.
func (k *KeychainStore) Set(key string, value []byte) error {
	_, err := k.run("add-generic-password", "-a", key, "-s", k.service, "-w", string(value), "-U")
	if err != nil {
		return fmt.Errorf("keychain set %s: %w", key, describe(err))
	}
	return nil
}

// Get returns nil without error when no item exists.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	out, err := k.run("find-generic-password", "-a", key, "-s", k.service, "-w")
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keychain get %s: %w", key, describe(err))
	}
	return []byte(strings.TrimRight(string(out), "\n")), nil
}

// Delete is a no-op for a missing item.
func (k *KeychainStore) Delete(key string) error {
	_, err := k.run("delete-generic-password", "-a", key, "-s", k.service)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("keychain delete %s: %w", key, describe(err))
	}
	return nil
}

func isNotFound(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == keychainItemNotFound
}

// describe adds the tool's stderr to the error.
func describe(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return fmt.Errorf("%s: %w", strings.TrimSpace(string(exitErr.Stderr)), err)
	}
	return err
}
