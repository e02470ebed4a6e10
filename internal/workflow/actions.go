package workflow

import (
	"context"
	"fmt"
)

// Actions is the external operation set behind the triggered steps. Every
// method fails with a human-readable error when the collaborator rejects it.
type Actions interface {
	GenerateCalendar(ctx context.Context) error
	ValidateData(ctx context.Context) (ValidationReport, error)
	GenerateSchedule(ctx context.Context, period Period) error
	SyncForm(ctx context.Context, period Period) error
	AutoAssign(ctx context.Context, period Period) error
}

// ValidationReport is the result of the data validation step. Errors are
// blocking data-quality findings, Warnings are not. Neither fails the step.
type ValidationReport struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Tone classifies how a report is presented.
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneWarning Tone = "warning"
	ToneFailure Tone = "failure"
)

func (r ValidationReport) Tone() Tone {
	switch {
	case len(r.Errors) > 0:
		return ToneFailure
	case len(r.Warnings) > 0:
		return ToneWarning
	default:
		return ToneSuccess
	}
}

func (r ValidationReport) Summary() string {
	switch r.Tone() {
	case ToneFailure:
		return fmt.Sprintf("Validation found %d errors and %d warnings", len(r.Errors), len(r.Warnings))
	case ToneWarning:
		return fmt.Sprintf("Validation passed with %d warnings", len(r.Warnings))
	default:
		return "Validation passed"
	}
}

// run dispatches a triggered step to its action.
func run(ctx context.Context, a Actions, id StepID, period Period) (string, *ValidationReport, error) {
	switch id {
	case StepCalendar:
		if err := a.GenerateCalendar(ctx); err != nil {
			return "", nil, err
		}
		return "Calendar generated", nil, nil
	case StepValidate:
		report, err := a.ValidateData(ctx)
		if err != nil {
			return "", nil, err
		}
		return report.Summary(), &report, nil
	case StepSchedule:
		if err := a.GenerateSchedule(ctx, period); err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("Schedule generated for %s", period), nil, nil
	case StepFormSync:
		if err := a.SyncForm(ctx, period); err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("Timeoff form updated for %s", period), nil, nil
	case StepAutoAssign:
		if err := a.AutoAssign(ctx, period); err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("Volunteers assigned for %s", period), nil, nil
	default:
		return "", nil, fmt.Errorf("step %d: %w", id, ErrNotTriggered)
	}
}
