// Package secrets holds credentials injected into jobs. Each job
// receives only the secrets its definition names.
package secrets

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// EnvPrefix marks environment variables that seed the store, e.g.
// CONVEYOR_SECRET_INDEX_TOKEN becomes the secret INDEX_TOKEN.
const EnvPrefix = "CONVEYOR_SECRET_"

// Store is a read-mostly secret registry.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

// FromEnv creates a store seeded from prefixed environment variables.
func FromEnv() *Store {
	s := NewStore()
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		s.Set(strings.TrimPrefix(name, EnvPrefix), value)
	}
	return s
}

// Set stores a secret.
func (s *Store) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

// Get returns a secret value.
func (s *Store) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// Scoped returns exactly the named secrets. A missing secret is an
// error: a job must never run believing a credential was injected.
func (s *Store) Scoped(names []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scoped := make(map[string]string, len(names))
	for _, name := range names {
		v, ok := s.values[name]
		if !ok {
			return nil, fmt.Errorf("secret %s is not configured", name)
		}
		scoped[name] = v
	}
	return scoped, nil
}
