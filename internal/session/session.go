// Package session is a lightweight string key/value store for user
// preferences. Values are kept in memory and, when constructed with a
// backing file, flushed to disk on every write so toggles survive across
// runs.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Store holds preference values keyed by fixed strings.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
	path   string // empty means in-memory only
}

// New returns an in-memory store. Values die with the process.
func New() *Store {
	return &Store{values: make(map[string]string)}
}

// Open returns a store backed by the JSON file at path. A missing file is
// not an error; it is created on the first write.
func Open(path string) (*Store, error) {
	s := &Store{values: make(map[string]string), path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading preferences: %w", err)
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("parsing preferences %s: %w", path, err)
	}
	return s, nil
}

// Get returns the value for key and whether it was set.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and flushes to the backing file, if any.
// A flush failure leaves the in-memory value in place.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return s.flush()
}

// GetBool returns the boolean stored under key, or def when the key is
// unset or not a boolean.
func (s *Store) GetBool(key string, def bool) bool {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// SetBool stores a boolean under key.
func (s *Store) SetBool(key string, value bool) error {
	return s.Set(key, strconv.FormatBool(value))
}

// Delete removes key and flushes to the backing file, if any.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return s.flush()
}

// flush writes the value map to the backing file. Callers hold the lock.
func (s *Store) flush() error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("writing preferences: %w", err)
	}
	return nil
}
