// Package activity keeps the operator activity log: every domain event is
// indexed as one entry that can be queried by session, category and weight.
package activity

import (
	"encoding/json"
	"time"

	"github.com/mfperdi/parishliturgyplanner/internal/event"
)

// Entry is one indexed domain event.
type Entry struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	SessionID  string          `json:"session_id,omitempty"`
	Summary    string          `json:"summary"`
	Category   string          `json:"category"`
	Weight     string          `json:"weight"`
	Polarity   string          `json:"polarity"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// FromEvent builds the entry for a domain event.
func FromEvent(evt event.DomainEvent) Entry {
	return Entry{
		EventID:    evt.ID,
		EventType:  evt.EventType,
		OccurredAt: evt.OccurredAt,
		SessionID:  evt.SessionID,
		Summary:    evt.Summary,
		Category:   evt.Category,
		Weight:     evt.Weight,
		Polarity:   evt.Polarity,
		Payload:    evt.Payload,
	}
}

// WeightOrder ranks event weights; higher is more significant.
var WeightOrder = map[string]int{
	"info":  1,
	"minor": 2,
	"major": 3,
}

// WeightRank returns the rank of w, or 0 for an unknown weight.
func WeightRank(w string) int { return WeightOrder[w] }

// IsAtLeastWeight reports whether w is at least as significant as min.
func IsAtLeastWeight(w, min string) bool {
	return WeightRank(w) >= WeightRank(min)
}

// QueryOptions controls filtering and pagination for activity queries.
type QueryOptions struct {
	SessionID  string     // empty: all sessions
	Since      *time.Time // default: 30 days ago
	Categories []string   // filter to specific categories
	MinWeight  string     // minimum weight threshold (default: "info")
	Limit      int        // max results (default: 100, max: 500)
	Cursor     string     // occurred_at of the last entry of the previous page
}

// DefaultQueryOptions returns QueryOptions with sensible defaults.
func DefaultQueryOptions() QueryOptions {
	since := time.Now().AddDate(0, 0, -30)
	return QueryOptions{
		Since:     &since,
		MinWeight: "info",
		Limit:     100,
	}
}

func (o QueryOptions) limit() int {
	if o.Limit <= 0 || o.Limit > 500 {
		return 100
	}
	return o.Limit
}

func (o QueryOptions) cursor() (time.Time, bool) {
	if o.Cursor == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, o.Cursor)
	return t, err == nil
}

// Page is one page of query results, newest first.
type Page struct {
	Entries    []Entry `json:"entries"`
	NextCursor string  `json:"next_cursor,omitempty"`
	Total      int     `json:"total"`
}

func cursorOf(e Entry) string {
	return e.OccurredAt.UTC().Format(time.RFC3339Nano)
}
