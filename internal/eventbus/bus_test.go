package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfperdi/parishliturgyplanner/internal/event"
)

func TestBus_DispatchesInOrder(t *testing.T) {
	bus := New(8, zerolog.Nop())
	var mu sync.Mutex
	var got []string
	bus.Subscribe("collect", HandlerFunc(func(_ context.Context, evt event.DomainEvent) error {
		mu.Lock()
		got = append(got, evt.EventType)
		mu.Unlock()
		return nil
	}))
	bus.Subscribe("failing", HandlerFunc(func(context.Context, event.DomainEvent) error {
		return errors.New("boom")
	}))
	bus.Start(context.Background())

	ctx := context.Background()
	bus.Publish(ctx, event.NewPeriodSelected(event.PeriodSelectedPayload{Period: "2025-03"}))
	bus.Publish(ctx, event.NewSettingsSaved(event.SettingsSavedPayload{Rows: []int{1}}))
	bus.Stop()

	assert.Equal(t, []string{event.TypePeriodSelected, event.TypeSettingsSaved}, got)
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := New(1, zerolog.Nop())
	dropped := 0
	bus.OnDrop(func(event.DomainEvent) { dropped++ })

	ctx := context.Background()
	bus.Publish(ctx, event.NewSettingsSaved(event.SettingsSavedPayload{}))
	bus.Publish(ctx, event.NewSettingsSaved(event.SettingsSavedPayload{}))
	assert.Equal(t, 1, dropped)
}

func TestHub_FiltersBySession(t *testing.T) {
	hub := NewHub()
	mine, cancelMine := hub.Subscribe("s1", 4)
	all, cancelAll := hub.Subscribe("", 4)
	defer cancelAll()

	ctx := context.Background()
	e1 := event.NewSettingsSaved(event.SettingsSavedPayload{})
	e1.SessionID = "s1"
	e2 := event.NewSettingsSaved(event.SettingsSavedPayload{})
	e2.SessionID = "s2"
	require.NoError(t, hub.HandleEvent(ctx, e1))
	require.NoError(t, hub.HandleEvent(ctx, e2))

	assert.Equal(t, e1.ID, (<-mine).ID)
	assert.Len(t, mine, 0)
	assert.Len(t, all, 2)

	cancelMine()
	cancelMine()
	_, open := <-mine
	assert.False(t, open)
	assert.Equal(t, 1, hub.Len())
}

func TestHub_SlowSubscriberMissesEvents(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("", 1)
	defer cancel()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, hub.HandleEvent(ctx, event.NewSettingsSaved(event.SettingsSavedPayload{})))
	}
	assert.Len(t, ch, 1)
}
