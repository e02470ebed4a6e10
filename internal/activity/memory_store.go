package activity

import (
	"context"
	"slices"
	"sort"
	"sync"
)

// MemoryStore implements Store using an in-memory slice.
// Intended for demos and testing.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) WriteEntries(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if slices.ContainsFunc(s.entries, func(x Entry) bool { return x.EventID == e.EventID }) {
			continue
		}
		s.entries = append(s.entries, e)
	}
	return nil
}

func (s *MemoryStore) Query(_ context.Context, opts QueryOptions) (*Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cursor, hasCursor := opts.cursor()
	var matched []Entry
	for _, e := range s.entries {
		if opts.SessionID != "" && e.SessionID != opts.SessionID {
			continue
		}
		if opts.Since != nil && e.OccurredAt.Before(*opts.Since) {
			continue
		}
		if len(opts.Categories) > 0 && !slices.Contains(opts.Categories, e.Category) {
			continue
		}
		if opts.MinWeight != "" && !IsAtLeastWeight(e.Weight, opts.MinWeight) {
			continue
		}
		matched = append(matched, e)
	}

	// Sort by occurred_at DESC.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	page := &Page{Total: len(matched)}
	if hasCursor {
		i := 0
		for i < len(matched) && !matched[i].OccurredAt.Before(cursor) {
			i++
		}
		matched = matched[i:]
	}
	limit := opts.limit()
	if len(matched) > limit {
		matched = matched[:limit]
		page.NextCursor = cursorOf(matched[len(matched)-1])
	}
	page.Entries = matched
	return page, nil
}
