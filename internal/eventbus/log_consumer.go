package eventbus

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mfperdi/parishliturgyplanner/internal/event"
)

// LogConsumer logs all domain events for observability.
type LogConsumer struct {
	log zerolog.Logger
}

func NewLogConsumer(log zerolog.Logger) *LogConsumer { return &LogConsumer{log: log} }

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	lvl := zerolog.DebugLevel
	if evt.Weight == "major" {
		lvl = zerolog.InfoLevel
	}
	c.log.WithLevel(lvl).
		Str("event_type", evt.EventType).
		Str("session", evt.SessionID).
		Str("category", evt.Category).
		Str("weight", evt.Weight).
		Msg(evt.Summary)
	return nil
}
