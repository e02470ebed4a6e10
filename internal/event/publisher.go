// Package event defines the planner's domain events. Components publish them
// after a state change; the event bus fans them out to the log, metrics,
// activity and websocket consumers.
package event

import "context"

// Publisher sends domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

// PublisherFunc adapts a plain function to the Publisher interface.
type PublisherFunc func(ctx context.Context, evt DomainEvent)

func (f PublisherFunc) Publish(ctx context.Context, evt DomainEvent) { f(ctx, evt) }

// Nop discards every event.
var Nop Publisher = PublisherFunc(func(context.Context, DomainEvent) {})

// Scoped stamps every event with a session id before passing it on.
type Scoped struct {
	SessionID string
	Next      Publisher
}

func (s Scoped) Publish(ctx context.Context, evt DomainEvent) {
	if evt.SessionID == "" {
		evt.SessionID = s.SessionID
	}
	s.Next.Publish(ctx, evt)
}
