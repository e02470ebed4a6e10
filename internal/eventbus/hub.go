package eventbus

import (
	"context"
	"sync"

	"github.com/mfperdi/parishliturgyplanner/internal/event"
)

// Hub fans events out to live subscribers, typically websocket connections
// following one operator session. A slow subscriber misses events rather
// than stalling the bus.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscription
}

type subscription struct {
	sessionID string
	ch        chan event.DomainEvent
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]*subscription)}
}

// Subscribe returns a channel receiving the events of sessionID, or of
// every session when sessionID is empty. cancel closes the channel.
func (h *Hub) Subscribe(sessionID string, buf int) (events <-chan event.DomainEvent, cancel func()) {
	if buf < 1 {
		buf = 16
	}
	sub := &subscription{sessionID: sessionID, ch: make(chan event.DomainEvent, buf)}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if sub.sessionID != "" && sub.sessionID != evt.SessionID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
	return nil
}
