package memory

import (
	"context"
	"sync"
)

// KVStore implements ports.KVStore using an in-memory map
type KVStore struct {
	values map[string]string
	mu     sync.RWMutex
}

// NewKVStore creates a new in-memory key-value store
func NewKVStore() *KVStore {
	return &KVStore{
		values: make(map[string]string),
	}
}

// Get returns the value stored under key
func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	return value, ok, nil
}

// Set overwrites the value stored under key
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

// Ping always succeeds for the in-memory store
func (s *KVStore) Ping(ctx context.Context) error {
	return nil
}
