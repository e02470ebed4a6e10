package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DomainEvent carries the canonical shape of every planner event.
type DomainEvent struct {
	ID         string          `json:"id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	SessionID  string          `json:"session_id,omitempty"`
	Summary    string          `json:"summary"`
	Category   string          `json:"category"` // "workflow", "approval", "record", "settings"
	Weight     string          `json:"weight"`   // "major", "minor", "info"
	Polarity   string          `json:"polarity"` // "positive", "negative", "neutral"
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Event types.
const (
	TypePeriodSelected    = "period_selected"
	TypeStepStatusChanged = "step_status_changed"
	TypeApprovalsFetched  = "approvals_fetched"
	TypeApprovalDecided   = "approval_decided"
	TypeRecordWritten     = "record_written"
	TypeSettingsSaved     = "settings_saved"
)

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// ── Workflow events ─────────────────────────────────────────────────────────

// PeriodSelectedPayload carries event-specific data for PeriodSelected.
type PeriodSelectedPayload struct {
	Period   string `json:"period"`
	Restored bool   `json:"restored"`
}

func NewPeriodSelected(p PeriodSelectedPayload) DomainEvent {
	summary := fmt.Sprintf("Period %s selected", p.Period)
	if p.Period == "" {
		summary = "Period cleared"
	}
	return DomainEvent{
		ID:         newID(),
		EventType:  TypePeriodSelected,
		OccurredAt: time.Now(),
		Summary:    summary,
		Category:   "workflow",
		Weight:     "info",
		Polarity:   "neutral",
		Payload:    mustJSON(p),
	}
}

// StepStatusPayload carries event-specific data for StepStatusChanged.
type StepStatusPayload struct {
	Period  string `json:"period,omitempty"`
	Step    int    `json:"step"`
	Name    string `json:"name"`
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message,omitempty"`
}

func NewStepStatusChanged(p StepStatusPayload) DomainEvent {
	weight, polarity := "minor", "neutral"
	switch p.To {
	case "complete":
		weight, polarity = "major", "positive"
	case "error":
		weight, polarity = "major", "negative"
	}
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeStepStatusChanged,
		OccurredAt: time.Now(),
		Summary:    fmt.Sprintf("Step %d (%s) %s -> %s", p.Step, p.Name, p.From, p.To),
		Category:   "workflow",
		Weight:     weight,
		Polarity:   polarity,
		Payload:    mustJSON(p),
	}
}

// ── Approval events ─────────────────────────────────────────────────────────

// ApprovalsFetchedPayload carries event-specific data for ApprovalsFetched.
type ApprovalsFetchedPayload struct {
	Period  string `json:"period"`
	Pending int    `json:"pending"`
}

func NewApprovalsFetched(p ApprovalsFetchedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeApprovalsFetched,
		OccurredAt: time.Now(),
		Summary:    fmt.Sprintf("%d pending approvals for %s", p.Pending, p.Period),
		Category:   "approval",
		Weight:     "info",
		Polarity:   "neutral",
		Payload:    mustJSON(p),
	}
}

// ApprovalDecidedPayload carries event-specific data for ApprovalDecided.
// DataIndex is -1 for a bulk approval.
type ApprovalDecidedPayload struct {
	Period    string `json:"period"`
	DataIndex int    `json:"data_index"`
	Decision  string `json:"decision"` // "approved", "rejected", "bulk_approved"
	Notes     string `json:"notes,omitempty"`
	Count     int    `json:"count,omitempty"`
}

func NewApprovalDecided(p ApprovalDecidedPayload) DomainEvent {
	polarity := "positive"
	if p.Decision == "rejected" {
		polarity = "negative"
	}
	summary := fmt.Sprintf("Request %d %s", p.DataIndex, p.Decision)
	if p.Decision == "bulk_approved" {
		summary = fmt.Sprintf("%d clean requests approved", p.Count)
	}
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeApprovalDecided,
		OccurredAt: time.Now(),
		Summary:    summary,
		Category:   "approval",
		Weight:     "minor",
		Polarity:   polarity,
		Payload:    mustJSON(p),
	}
}

// ── Record events ───────────────────────────────────────────────────────────

// RecordWrittenPayload carries event-specific data for RecordWritten.
// Row is -1 for a create.
type RecordWrittenPayload struct {
	Entity string `json:"entity"`
	Op     string `json:"op"` // "create", "update", "delete"
	Row    int    `json:"row"`
}

func NewRecordWritten(p RecordWrittenPayload) DomainEvent {
	summary := fmt.Sprintf("%s row %d %sd", p.Entity, p.Row, p.Op)
	if p.Op == "create" {
		summary = fmt.Sprintf("%s row created", p.Entity)
	}
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeRecordWritten,
		OccurredAt: time.Now(),
		Summary:    summary,
		Category:   "record",
		Weight:     "minor",
		Polarity:   "neutral",
		Payload:    mustJSON(p),
	}
}

// SettingsSavedPayload carries event-specific data for SettingsSaved.
type SettingsSavedPayload struct {
	Rows []int `json:"rows"`
}

func NewSettingsSaved(p SettingsSavedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeSettingsSaved,
		OccurredAt: time.Now(),
		Summary:    fmt.Sprintf("%d settings saved", len(p.Rows)),
		Category:   "settings",
		Weight:     "minor",
		Polarity:   "positive",
		Payload:    mustJSON(p),
	}
}
