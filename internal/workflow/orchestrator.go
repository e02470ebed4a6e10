package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mfperdi/parishliturgyplanner/internal/event"
	"github.com/mfperdi/parishliturgyplanner/internal/remote"
)

// Step is the view of one workflow step.
type Step struct {
	ID      StepID `json:"id"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Enabled bool   `json:"enabled"` // whether the operator can trigger it now
	Message string `json:"message,omitempty"`
}

type stepState struct {
	status  Status
	message string
}

// periodState holds the period-scoped steps. It is kept when the operator
// switches away and restored when the period is selected again.
type periodState struct {
	steps    map[StepID]*stepState
	approval *int
}

func newPeriodState() *periodState {
	return &periodState{steps: map[StepID]*stepState{
		StepSchedule:   {status: StatusPending},
		StepFormSync:   {status: StatusPending},
		StepAutoAssign: {status: StatusPending},
	}}
}

// Orchestrator holds step status for one operator session. Steps 1 and 2 are
// shared by every period; steps 3 to 6 belong to the selected period.
//
// The mutex is never held across an Actions call. Only one action runs at a
// time; a second trigger while one is in flight fails with ErrBusy.
type Orchestrator struct {
	actions Actions
	pub     event.Publisher
	log     zerolog.Logger

	mu      sync.Mutex
	period  Period
	global  map[StepID]*stepState
	periods map[Period]*periodState
	running StepID
	report  *ValidationReport
}

// NewOrchestrator creates an Orchestrator with every step pending.
func NewOrchestrator(actions Actions, pub event.Publisher, log zerolog.Logger) *Orchestrator {
	if pub == nil {
		pub = event.Nop
	}
	return &Orchestrator{
		actions: actions,
		pub:     pub,
		log:     log,
		global: map[StepID]*stepState{
			StepCalendar: {status: StatusPending},
			StepValidate: {status: StatusPending},
		},
		periods: make(map[Period]*periodState),
	}
}

// Period returns the selected period, or "" when none is.
func (o *Orchestrator) Period() Period {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.period
}

// SelectPeriod makes p the current period. Progress recorded earlier for p
// is restored. An empty p clears the selection.
func (o *Orchestrator) SelectPeriod(ctx context.Context, p Period) {
	o.mu.Lock()
	restored := false
	if p != "" {
		if _, ok := o.periods[p]; ok {
			restored = true
		} else {
			o.periods[p] = newPeriodState()
		}
	}
	o.period = p
	o.mu.Unlock()

	o.log.Info().Str("period", string(p)).Bool("restored", restored).Msg("workflow: period selected")
	o.pub.Publish(ctx, event.NewPeriodSelected(event.PeriodSelectedPayload{Period: string(p), Restored: restored}))
}

// Steps returns all six steps in order for the current period.
func (o *Orchestrator) Steps() []Step {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Step, 0, len(AllSteps))
	for _, id := range AllSteps {
		st := o.stateLocked(o.period, id)
		out = append(out, Step{
			ID:      id,
			Name:    id.Name(),
			Status:  st.status,
			Enabled: id.Triggered() && (!id.NeedsPeriod() || o.period != ""),
			Message: st.message,
		})
	}
	return out
}

// Report returns the most recent validation report, if any.
func (o *Orchestrator) Report() (ValidationReport, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.report == nil {
		return ValidationReport{}, false
	}
	return *o.report, true
}

// stateLocked returns a snapshot of one step's state for period p.
func (o *Orchestrator) stateLocked(p Period, id StepID) stepState {
	if st, ok := o.global[id]; ok {
		return *st
	}
	ps := o.periods[p]
	if id == StepApprovals {
		if ps == nil {
			return stepState{status: StatusPending}
		}
		return stepState{status: approvalStatus(ps.approval)}
	}
	if ps == nil {
		return stepState{status: StatusPending}
	}
	return *ps.steps[id]
}

// mutableLocked returns the stored state of a triggered step.
func (o *Orchestrator) mutableLocked(p Period, id StepID) *stepState {
	if st, ok := o.global[id]; ok {
		return st
	}
	return o.periods[p].steps[id]
}

// Run triggers a step's action and records the outcome. A collaborator
// failure moves the step to error and is returned as a *remote.Failure so
// the caller can show its message; the operator retries by running again.
func (o *Orchestrator) Run(ctx context.Context, id StepID) error {
	if !id.Valid() {
		return fmt.Errorf("step %d: %w", id, ErrUnknownStep)
	}
	if !id.Triggered() {
		return fmt.Errorf("step %d: %w", id, ErrNotTriggered)
	}

	o.mu.Lock()
	if o.running != 0 {
		running := o.running
		o.mu.Unlock()
		return fmt.Errorf("step %d is running: %w", running, ErrBusy)
	}
	period := o.period
	if id.NeedsPeriod() && period == "" {
		o.mu.Unlock()
		return fmt.Errorf("step %d: %w", id, ErrNoPeriod)
	}
	st := o.mutableLocked(period, id)
	from := st.status
	if err := validateTransition(from, StatusActive); err != nil {
		o.mu.Unlock()
		return fmt.Errorf("step %d: %w", id, err)
	}
	st.status, st.message = StatusActive, ""
	o.running = id
	o.mu.Unlock()

	o.publishStep(ctx, period, id, from, StatusActive, "")
	o.log.Info().Int("step", int(id)).Str("period", string(period)).Msg("workflow: step started")

	msg, report, err := run(ctx, o.actions, id, period)

	o.mu.Lock()
	o.running = 0
	to := StatusComplete
	if err != nil {
		to, msg = StatusError, remote.Message(err)
	}
	if terr := validateTransition(st.status, to); terr != nil {
		o.log.Error().Err(terr).Int("step", int(id)).Msg("workflow: unexpected step status")
	}
	st.status, st.message = to, msg
	if report != nil {
		o.report = report
	}
	o.mu.Unlock()

	o.publishStep(ctx, period, id, StatusActive, to, msg)
	if err != nil {
		o.log.Warn().Err(err).Int("step", int(id)).Str("period", string(period)).Msg("workflow: step failed")
		return remote.Wrap(id.op(), err)
	}
	o.log.Info().Int("step", int(id)).Str("period", string(period)).Str("message", msg).Msg("workflow: step complete")
	return nil
}

// ApprovalCount records the outstanding approval count for a period. It is
// the approval queue's callback and the only input to step 5.
func (o *Orchestrator) ApprovalCount(ctx context.Context, p Period, n int) {
	if p == "" {
		return
	}
	o.mu.Lock()
	ps, ok := o.periods[p]
	if !ok {
		ps = newPeriodState()
		o.periods[p] = ps
	}
	from := approvalStatus(ps.approval)
	count := n
	ps.approval = &count
	to := approvalStatus(ps.approval)
	o.mu.Unlock()

	if from != to {
		o.publishStep(ctx, p, StepApprovals, from, to, fmt.Sprintf("%d pending", n))
	}
}

func (o *Orchestrator) publishStep(ctx context.Context, p Period, id StepID, from, to Status, msg string) {
	o.pub.Publish(ctx, event.NewStepStatusChanged(event.StepStatusPayload{
		Period:  string(p),
		Step:    int(id),
		Name:    id.Name(),
		From:    string(from),
		To:      string(to),
		Message: msg,
	}))
}

// op names the remote procedure behind a step.
func (s StepID) op() string {
	switch s {
	case StepCalendar:
		return "generateCalendar"
	case StepValidate:
		return "validateData"
	case StepSchedule:
		return "generateSchedule"
	case StepFormSync:
		return "syncForm"
	case StepAutoAssign:
		return "autoAssign"
	default:
		return "unknown"
	}
}
