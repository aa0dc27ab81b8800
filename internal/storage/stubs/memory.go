package stubs

import (
	"context"
	"sort"
	"sync"

	"bookshelf/internal/storage"
)

// MemoryStore is an in-memory implementation of the Storage interface.
// It backs tests and sessions where durable storage is unavailable.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string][]byte
	quota    int
	writeErr error
}

// Option configures a MemoryStore
type Option func(*MemoryStore)

// WithQuota limits the summed size of keys and values in bytes
func WithQuota(bytes int) Option {
	return func(m *MemoryStore) {
		m.quota = bytes
	}
}

// WithWriteError makes every Set and Remove fail with err
func WithWriteError(err error) Option {
	return func(m *MemoryStore) {
		m.writeErr = err
	}
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(opts ...Option) *MemoryStore {
	m := &MemoryStore{
		data: make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ storage.Storage = (*MemoryStore)(nil)

// Initialize does nothing for the memory store
func (m *MemoryStore) Initialize(ctx context.Context) error {
	return nil
}

// FailWrites switches write failures on (err != nil) or off
func (m *MemoryStore) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return m.writeErr
	}

	if m.quota > 0 {
		used := 0
		for k, v := range m.data {
			if k == key {
				continue
			}
			used += len(k) + len(v)
		}
		if used+len(key)+len(value) > m.quota {
			return storage.ErrQuotaExceeded
		}
	}

	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *MemoryStore) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return m.writeErr
	}
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Keys(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close does nothing for the memory store
func (m *MemoryStore) Close() error {
	return nil
}
