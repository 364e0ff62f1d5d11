// Package memkv is a mutex-guarded in-memory key-value map. It backs the
// CLI when no server address is given and stands in for the engine in
// handler tests.
package memkv

import "sync"

// Store is safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	m  map[string][]byte
}

// New returns an empty store.
func New() *Store {
	return &Store{m: make(map[string][]byte)}
}

// Put stores a copy of value under key.
func (s *Store) Put(key, value []byte) error {
	v := append([]byte{}, value...)
	s.mu.Lock()
	s.m[string(key)] = v
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	v, ok := s.m[string(key)]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return append([]byte{}, v...), true, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key []byte) error {
	s.Remove(key)
	return nil
}

// Remove deletes key and reports whether it was present.
func (s *Store) Remove(key []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[string(key)]
	delete(s.m, string(key))
	return ok
}

// Len returns the number of keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
