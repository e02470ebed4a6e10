// Package eventbus provides an in-process pub/sub event bus for domain events.
// Components publish events after a state change; subscribers process them
// asynchronously on a single consumer goroutine.
package eventbus

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mfperdi/parishliturgyplanner/internal/event"
)

// Handler processes a domain event. Implementations must be safe for
// concurrent calls from different goroutines.
type Handler interface {
	HandleEvent(ctx context.Context, evt event.DomainEvent) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt event.DomainEvent) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	return f(ctx, evt)
}

// Bus is a simple in-process event bus. Events are published to a buffered
// channel and dispatched to all subscribers in a single consumer goroutine,
// which serialises writes to the activity store.
type Bus struct {
	log zerolog.Logger

	mu          sync.RWMutex
	subscribers []namedHandler
	events      chan event.DomainEvent
	stop        chan struct{}
	done        chan struct{}
	stopOnce    sync.Once
	onDrop      func(evt event.DomainEvent)
}

type namedHandler struct {
	name    string
	handler Handler
}

// New creates a new Bus with the given channel buffer size.
func New(bufSize int, log zerolog.Logger) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	return &Bus{
		log:    log,
		events: make(chan event.DomainEvent, bufSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Subscribe registers a named handler. Must be called before Start.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, namedHandler{name: name, handler: h})
}

// OnDrop registers a callback for events dropped on a full buffer.
func (b *Bus) OnDrop(fn func(evt event.DomainEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onDrop = fn
}

// Publish sends an event to the bus. Non-blocking: if the buffer is full
// the event is dropped and a warning is logged.
func (b *Bus) Publish(_ context.Context, evt event.DomainEvent) {
	select {
	case b.events <- evt:
	default:
		b.log.Warn().Str("event_type", evt.EventType).Str("event_id", evt.ID).Msg("eventbus: buffer full, dropping event")
		b.mu.RLock()
		fn := b.onDrop
		b.mu.RUnlock()
		if fn != nil {
			fn(evt)
		}
	}
}

// Start begins the consumer goroutine. It processes events until the
// context is cancelled or Stop is called, then drains what is buffered.
func (b *Bus) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		for {
			select {
			case evt := <-b.events:
				b.dispatch(ctx, evt)
			case <-ctx.Done():
				b.drain(context.WithoutCancel(ctx))
				return
			case <-b.stop:
				b.drain(ctx)
				return
			}
		}
	}()
}

func (b *Bus) drain(ctx context.Context) {
	for {
		select {
		case evt := <-b.events:
			b.dispatch(ctx, evt)
		default:
			return
		}
	}
}

// Stop waits for the consumer goroutine to finish. Start must have been
// called.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
	<-b.done
}

func (b *Bus) dispatch(ctx context.Context, evt event.DomainEvent) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			b.log.Error().Err(err).Str("handler", s.name).Str("event_type", evt.EventType).Msg("eventbus: handler error")
		}
	}
}
