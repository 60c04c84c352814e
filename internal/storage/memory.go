package storage

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryBackend keeps documents in memory. Used by tests and the memory backend setting.
type MemoryBackend struct {
	docs    map[Dataset][]byte
	failing map[Dataset]error
	writes  int
	mu      sync.Mutex
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		docs:    make(map[Dataset][]byte),
		failing: make(map[Dataset]error),
	}
}

func (m *MemoryBackend) Read(_ context.Context, name Dataset) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	body, ok := m.docs[name]
	if !ok {
		return nil, ErrNotExist
	}

	return slices.Clone(body), nil
}

// Write stores documents in order and stops at the first failing one.
func (m *MemoryBackend) Write(_ context.Context, docs ...Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, doc := range docs {
		if err := m.failing[doc.Name]; err != nil {
			return err
		}

		m.docs[doc.Name] = slices.Clone(doc.Body)
		m.writes++
	}

	return nil
}

func (m *MemoryBackend) Exists(_ context.Context, name Dataset) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.docs[name]

	return ok, nil
}

func (m *MemoryBackend) Close() error { return nil }

// FailWrites makes writes to name return err. A nil err clears the failure.
func (m *MemoryBackend) FailWrites(name Dataset, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.failing, name)
		return
	}

	m.failing[name] = err
}

// Put stores a raw body, bypassing encoding.
func (m *MemoryBackend) Put(name Dataset, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[name] = slices.Clone(body)
}

// Writes returns how many documents have been written.
func (m *MemoryBackend) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.writes
}

// Snapshot returns a copy of every stored document.
func (m *MemoryBackend) Snapshot() map[Dataset][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	return maps.Clone(m.docs)
}
