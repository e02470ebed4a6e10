package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfperdi/parishliturgyplanner/internal/automation"
	"github.com/mfperdi/parishliturgyplanner/internal/event"
	"github.com/mfperdi/parishliturgyplanner/internal/record"
	"github.com/mfperdi/parishliturgyplanner/internal/schema"
	"github.com/mfperdi/parishliturgyplanner/internal/workflow"
)

type eventSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *eventSink) Publish(_ context.Context, evt event.DomainEvent) {
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
}

func testDeps(t *testing.T, pub event.Publisher) Deps {
	t.Helper()
	reg, err := schema.Default()
	require.NoError(t, err)
	store := record.NewMemoryStore()
	store.Seed(automation.VolunteersCollection,
		record.Values{"V-001", "Ana", "Ruiz", "Ana Ruiz", "", "", "", "", "", "Active", "", "", ""},
	)
	store.Seed(automation.TimeoffsCollection,
		record.Values{"Ana Ruiz", "Not Available", "2025-03-01", "2025-03-08", "", "Pending", "", ""},
	)
	local := automation.NewLocal(store, reg, zerolog.Nop())
	return Deps{
		Registry:  reg,
		Store:     store,
		Backend:   local,
		Actions:   local,
		Publisher: pub,
		Log:       zerolog.Nop(),
	}
}

func stepStatus(s *Session, id workflow.StepID) workflow.Status {
	for _, st := range s.Workflow.Steps() {
		if st.ID == id {
			return st.Status
		}
	}
	return ""
}

func TestSession_QueueDrivesApprovalStep(t *testing.T) {
	ctx := context.Background()
	sink := &eventSink{}
	m := NewManager(testDeps(t, sink), time.Hour, time.Hour)
	s := m.Create()

	s.Workflow.SelectPeriod(ctx, "2025-03")
	_, err := s.Approvals.Fetch(ctx, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusActive, stepStatus(s, workflow.StepApprovals))

	n, err := s.Approvals.BulkApproveClean(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, workflow.StatusComplete, stepStatus(s, workflow.StepApprovals))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.NotEmpty(t, sink.events)
	for _, evt := range sink.events {
		assert.Equal(t, s.ID, evt.SessionID)
	}
}

func TestSession_Isolated(t *testing.T) {
	ctx := context.Background()
	m := NewManager(testDeps(t, nil), time.Hour, time.Hour)
	a, b := m.Create(), m.Create()
	assert.NotEqual(t, a.ID, b.ID)

	a.Workflow.SelectPeriod(ctx, "2025-03")
	assert.Equal(t, workflow.Period("2025-03"), a.Workflow.Period())
	assert.Equal(t, workflow.Period(""), b.Workflow.Period())
}

func TestManager_GetAndExpiry(t *testing.T) {
	m := NewManager(testDeps(t, nil), time.Hour, 50*time.Millisecond)
	s := m.Create()
	assert.Same(t, s, m.Get(s.ID))
	assert.Nil(t, m.Get("missing"))

	time.Sleep(80 * time.Millisecond)
	assert.Nil(t, m.Get(s.ID), "idle session is dropped on lookup")
	assert.Equal(t, 0, m.Len())
}

func TestManager_Cleanup(t *testing.T) {
	m := NewManager(testDeps(t, nil), 30*time.Millisecond, 0)
	m.Create()
	m.Create()
	assert.Equal(t, 0, m.Cleanup())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, m.Cleanup())
	assert.Equal(t, 0, m.Len())
}
