package store

import (
	"context"
	"sync"
)

// MemoryStore keeps the whole document in process. It backs tests and the default
// development configuration.
type MemoryStore struct {
	mu   sync.RWMutex
	root any
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, path string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	segs, err := Split(path)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := getAt(s.root, segs)
	if !ok {
		return Snapshot{path: Join(segs...)}, nil
	}
	return NewSnapshot(Join(segs...), value)
}

// Set implements Store.
func (s *MemoryStore) Set(ctx context.Context, path string, value any) error {
	return s.Update(ctx, map[string]any{path: value})
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	writes, err := planWrites(values)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range writes {
		s.root = setAt(s.root, w.segs, w.value)
	}
	return nil
}

// Push implements Store.
func (s *MemoryStore) Push(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := Split(path); err != nil {
		return "", err
	}
	return NewPushID(), nil
}

// Remove implements Store.
func (s *MemoryStore) Remove(ctx context.Context, path string) error {
	return s.Set(ctx, path, nil)
}
