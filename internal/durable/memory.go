package durable

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store used by tests and as an explicit
// non-persistent fallback. Data is lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Value
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Value)}
}

func (m *MemoryStore) Read(_ context.Context, key string) (Value, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Write(_ context.Context, key string, v Value) error {
	if v.Absent() {
		return fmt.Errorf("write %q: %w", key, ErrAbsentValue)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = v
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Close() error { return nil }
