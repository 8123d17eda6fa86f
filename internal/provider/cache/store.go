package cache

import (
	"context"
	"sync"
)

// Store holds entries of one kind, keyed by string. Implementations must be
// safe for concurrent use. Entries never expire on their own.
type Store[T any] interface {
	Get(ctx context.Context, key string) (Entry[T], bool, error)
	Set(ctx context.Context, key string, e Entry[T]) error
	Len(ctx context.Context) (int, error)
	// Clear removes every entry and returns how many were removed.
	Clear(ctx context.Context) (int, error)
	Name() string
}

// MemoryStore is an in-process Store. Entries live until Clear.
type MemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]Entry[T]
}

func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{items: make(map[string]Entry[T])}
}

func (m *MemoryStore[T]) Name() string { return "memory" }

func (m *MemoryStore[T]) Get(_ context.Context, key string) (Entry[T], bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.items[key]
	return e, ok, nil
}

func (m *MemoryStore[T]) Set(_ context.Context, key string, e Entry[T]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]Entry[T])
	}
	m.items[key] = e
	return nil
}

func (m *MemoryStore[T]) Len(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items), nil
}

func (m *MemoryStore[T]) Clear(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.items)
	m.items = make(map[string]Entry[T])
	return n, nil
}
