package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

var _ Settings = (*MemorySettings)(nil)

// MemorySettings is a goroutine-safe in-memory [Settings].
type MemorySettings struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemorySettings creates an empty [MemorySettings].
func NewMemorySettings() *MemorySettings {
	return &MemorySettings{values: make(map[string]string)}
}

func (m *MemorySettings) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSettingNotFound, key)
	}
	return v, nil
}

func (m *MemorySettings) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemorySettings) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemorySettings) List(_ context.Context) ([]Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	settings := make([]Setting, 0, len(m.values))
	for k, v := range m.values {
		settings = append(settings, Setting{Key: k, Value: v})
	}
	sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })
	return settings, nil
}
