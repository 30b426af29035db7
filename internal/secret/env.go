package secret

import (
	"os"
	"strings"
	"sync"
)

// EnvStore reads secrets from environment variables named PREFIX + upper(key),
// e.g. DATADESK_TABLE_PASSWORD. Values set at runtime live only in this process.
type EnvStore struct {
	prefix string

	mu        sync.RWMutex
	overrides map[string][]byte
}

// NewEnvStore creates an EnvStore with the given variable prefix.
func NewEnvStore(prefix string) *EnvStore {
	return &EnvStore{prefix: prefix, overrides: map[string][]byte{}}
}

func (e *EnvStore) envName(key string) string {
	return e.prefix + strings.ToUpper(key)
}

func (e *EnvStore) Set(key string, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.overrides[key] = append([]byte(nil), value...)
	return nil
}

func (e *EnvStore) Get(key string) ([]byte, error) {
	e.mu.RLock()
	v, ok := e.overrides[key]
	e.mu.RUnlock()
	if ok {
		return v, nil
	}
	if s, ok := os.LookupEnv(e.envName(key)); ok {
		return []byte(s), nil
	}
	return nil, nil
}

func (e *EnvStore) Delete(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	// An empty override hides the env var for the rest of the process.
	e.overrides[key] = nil
	return nil
}
