// Package session manages operator session lifecycle. Each session owns the
// workflow orchestrator, approval queue and admin services of one operator.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mfperdi/parishliturgyplanner/internal/admin"
	"github.com/mfperdi/parishliturgyplanner/internal/approval"
	"github.com/mfperdi/parishliturgyplanner/internal/event"
	"github.com/mfperdi/parishliturgyplanner/internal/record"
	"github.com/mfperdi/parishliturgyplanner/internal/schema"
	"github.com/mfperdi/parishliturgyplanner/internal/workflow"
)

// Deps are the shared collaborators every session is wired to.
type Deps struct {
	Registry  *schema.Registry
	Store     record.Store
	Backend   approval.Backend
	Actions   workflow.Actions
	Publisher event.Publisher
	Log       zerolog.Logger
}

// Session holds per-operator state.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Workflow  *workflow.Orchestrator `json:"-"`
	Approvals *approval.Queue        `json:"-"`
	Records   *admin.Records         `json:"-"`
	Settings  *admin.Settings        `json:"-"`

	mu           sync.Mutex
	lastActiveAt time.Time
}

// NewSession creates a session wired to deps. The approval queue reports its
// pending count to the orchestrator, which derives the approvals step from it.
func NewSession(deps Deps) *Session {
	now := time.Now()
	id := uuid.New().String()
	log := deps.Log.With().Str("session", id).Logger()

	next := deps.Publisher
	if next == nil {
		next = event.Nop
	}
	pub := event.Scoped{SessionID: id, Next: next}

	orch := workflow.NewOrchestrator(deps.Actions, pub, log)
	return &Session{
		ID:           id,
		CreatedAt:    now,
		Workflow:     orch,
		Approvals:    approval.NewQueue(deps.Backend, orch.ApprovalCount, pub, log),
		Records:      admin.NewRecords(deps.Registry, deps.Store, pub, log),
		Settings:     admin.NewSettings(deps.Store, pub, log),
		lastActiveAt: now,
	}
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActiveAt = time.Now()
	s.mu.Unlock()
}

// LastActiveAt returns the time of the last request on this session.
func (s *Session) LastActiveAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActiveAt
}

// IsExpired returns true if the session has exceeded the given max age.
func (s *Session) IsExpired(maxAge time.Duration) bool {
	return maxAge > 0 && time.Since(s.CreatedAt) > maxAge
}

// IsIdle returns true if the session has been idle longer than the timeout.
func (s *Session) IsIdle(timeout time.Duration) bool {
	return timeout > 0 && time.Since(s.LastActiveAt()) > timeout
}

// Manager handles session creation, lookup, and cleanup.
type Manager struct {
	deps        Deps
	maxAge      time.Duration
	idleTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager with the given timeouts. A zero
// timeout disables that check.
func NewManager(deps Deps, maxAge, idleTimeout time.Duration) *Manager {
	return &Manager{
		deps:        deps,
		sessions:    make(map[string]*Session),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
	}
}

// Create creates a new session and returns it.
func (m *Manager) Create() *Session {
	s := NewSession(m.deps)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.deps.Log.Info().Str("session", s.ID).Msg("session: created")
	return s
}

// Get retrieves a session by ID and marks it active. Returns nil if not
// found or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
		m.Remove(id)
		return nil
	}
	s.Touch()
	return s
}

// Remove deletes a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup removes all expired and idle sessions and returns how many it
// removed.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Run calls Cleanup every interval until ctx is cancelled. A non-positive
// interval disables cleanup.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Cleanup(); n > 0 {
				m.deps.Log.Debug().Int("removed", n).Msg("session: cleanup")
			}
		}
	}
}
