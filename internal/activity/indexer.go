package activity

import (
	"context"

	"github.com/mfperdi/parishliturgyplanner/internal/event"
)

// Indexer consumes domain events and writes one activity entry per event.
// It is subscribed to the event bus.
type Indexer struct {
	store Store
}

// NewIndexer creates a new activity indexer.
func NewIndexer(store Store) *Indexer {
	return &Indexer{store: store}
}

// HandleEvent indexes a single domain event.
func (idx *Indexer) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	if evt.ID == "" {
		return nil
	}
	return idx.store.WriteEntries(ctx, []Entry{FromEvent(evt)})
}
