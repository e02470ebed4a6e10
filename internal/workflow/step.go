// Package workflow sequences the six operator-triggered scheduling steps for
// a selected period and tracks the status of each.
package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Period is a scheduling month in YYYY-MM form. The zero value means no
// period is selected.
type Period string

const periodLayout = "2006-01"

// ParsePeriod validates s as a YYYY-MM month.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(periodLayout, s); err != nil {
		return "", fmt.Errorf("invalid period %q: want YYYY-MM", s)
	}
	return Period(s), nil
}

// Month returns the first day of the period.
func (p Period) Month() time.Time {
	t, _ := time.Parse(periodLayout, string(p))
	return t
}

// StepID is the 1-based ordinal of a step.
type StepID int

const (
	StepCalendar StepID = iota + 1
	StepValidate
	StepSchedule
	StepFormSync
	StepApprovals
	StepAutoAssign
)

// AllSteps lists every step in order.
var AllSteps = []StepID{StepCalendar, StepValidate, StepSchedule, StepFormSync, StepApprovals, StepAutoAssign}

var stepNames = map[StepID]string{
	StepCalendar:   "Generate liturgical calendar",
	StepValidate:   "Validate data",
	StepSchedule:   "Generate schedule",
	StepFormSync:   "Update timeoff form",
	StepApprovals:  "Review timeoffs",
	StepAutoAssign: "Auto-assign volunteers",
}

func (s StepID) Valid() bool { return s >= StepCalendar && s <= StepAutoAssign }

func (s StepID) Name() string { return stepNames[s] }

// NeedsPeriod reports whether the step's action requires a selected period.
func (s StepID) NeedsPeriod() bool { return s >= StepSchedule }

// Triggered reports whether the operator starts the step. Step 5 is derived
// from the approval queue instead.
func (s StepID) Triggered() bool { return s != StepApprovals }

// Status is a step's lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// triggerTransitions is the lifecycle of an operator-triggered step. A
// complete step may be run again to regenerate its output.
var triggerTransitions = map[Status][]Status{
	StatusPending:  {StatusActive},
	StatusActive:   {StatusComplete, StatusError},
	StatusComplete: {StatusActive},
	StatusError:    {StatusActive},
}

// validateTransition checks whether moving from current to target is allowed.
func validateTransition(current, target Status) error {
	allowed, ok := triggerTransitions[current]
	if !ok {
		return fmt.Errorf("unknown current status: %s", current)
	}
	for _, s := range allowed {
		if s == target {
			return nil
		}
	}
	return fmt.Errorf("transition from %q to %q is not allowed", current, target)
}

// approvalStatus derives step 5 from the outstanding approval count. A nil
// count means none has been reported for the period.
func approvalStatus(count *int) Status {
	switch {
	case count == nil:
		return StatusPending
	case *count == 0:
		return StatusComplete
	default:
		return StatusActive
	}
}

var (
	ErrUnknownStep  = errors.New("unknown step")
	ErrNotTriggered = errors.New("step has no action; its status follows the approval queue")
	ErrNoPeriod     = errors.New("no period selected")
	ErrBusy         = errors.New("another step is running")
)
