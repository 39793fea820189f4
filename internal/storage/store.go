package storage

import (
	"errors"
	"sort"
	"sync"
)

// ErrKeyNotFound is returned when a key doesn't exist in the store
var ErrKeyNotFound = errors.New("key not found")

// Store holds staged blobs (installer packages) keyed by content hash.
// All implementations must be safe for concurrent use.
type Store interface {
	// Get returns a copy of the value, or ErrKeyNotFound.
	Get(key string) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(key string, value []byte) error

	// Has reports whether key is present without reading its value.
	Has(key string) (bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// List returns all keys in lexical order.
	List() ([]string, error)

	// Stats returns storage statistics
	Stats() (StoreStats, error)

	Close() error
}

// StoreStats contains statistics about the store
type StoreStats struct {
	Keys  int   `json:"keys"`
	Bytes int64 `json:"bytes"`
}

// MemoryStore keeps blobs in a map. Contents are lost on restart, which is
// fine for a coordinator that re-stages packages on every bootstrap.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *MemoryStore) Put(key string, value []byte) error {
	stored := append(make([]byte, 0, len(value)), value...)

	m.mu.Lock()
	m.data[key] = stored
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Has(key string) (bool, error) {
	m.mu.RLock()
	_, ok := m.data[key]
	m.mu.RUnlock()
	return ok, nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List() ([]string, error) {
	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	m.mu.RUnlock()

	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Stats() (StoreStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := StoreStats{Keys: len(m.data)}
	for _, value := range m.data {
		stats.Bytes += int64(len(value))
	}
	return stats, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
