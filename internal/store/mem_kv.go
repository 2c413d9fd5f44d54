package store

import (
	"context"
	"sync"
)

// MemKV keeps values in process memory. It is the default for tests and for
// agents that do not need to survive a restart.
type MemKV struct {
	values map[string]string
	mutex  sync.RWMutex
}

func NewMemKV() *MemKV {
	return &MemKV{
		values: make(map[string]string),
	}
}

func (m *MemKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	value, ok := m.values[key]
	return value, ok, nil
}

func (m *MemKV) Set(_ context.Context, key string, value string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.values[key] = value
	return nil
}

func (m *MemKV) Delete(_ context.Context, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.values, key)
	return nil
}

// Len returns the number of stored keys.
func (m *MemKV) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.values)
}
