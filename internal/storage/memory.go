package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps assets in process memory and hands back mem:// URLs.
// Used by tests and CLI dry runs where no bucket is configured.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty in-memory asset store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Store records the asset under logicalPath, overwriting any previous object.
func (m *MemoryStore) Store(_ context.Context, data []byte, logicalPath, _ string) (string, error) {
	cp := make([]byte, len(data))
	copy(cp, data)

	m.mu.Lock()
	m.objects[logicalPath] = cp
	m.mu.Unlock()

	return "mem://" + logicalPath, nil
}

// Get returns the stored bytes for logicalPath, if present.
func (m *MemoryStore) Get(logicalPath string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[logicalPath]
	return data, ok
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
