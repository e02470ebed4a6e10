package record

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore implements Store using in-memory slices.
// Intended for demos and testing; no database required.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Values
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]Values)}
}

// Seed replaces a collection's rows. Used by tests and demo setup.
func (s *MemoryStore) Seed(collection string, rows ...Values) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]Values, len(rows))
	for i, r := range rows {
		copied[i] = r.Clone()
	}
	s.collections[collection] = copied
}

func (s *MemoryStore) Read(_ context.Context, collection string) ([]Values, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.collections[collection]
	out := make([]Values, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out, nil
}

func (s *MemoryStore) Create(_ context.Context, collection string, values Values) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], values.Clone())
	return nil
}

func (s *MemoryStore) Update(_ context.Context, collection string, row int, values Values) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.collections[collection]
	if row < 0 || row >= len(rows) {
		return fmt.Errorf("%s row %d: %w", collection, row, ErrRowNotFound)
	}
	rows[row] = values.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection string, row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.collections[collection]
	if row < 0 || row >= len(rows) {
		return fmt.Errorf("%s row %d: %w", collection, row, ErrRowNotFound)
	}
	s.collections[collection] = append(rows[:row:row], rows[row+1:]...)
	return nil
}
