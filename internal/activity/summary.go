package activity

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// CategorySummary counts the entries of one category in a window.
type CategorySummary struct {
	Category         string         `json:"category"`
	Count            int            `json:"count"`
	ByWeight         map[string]int `json:"by_weight"`
	ByPolarity       map[string]int `json:"by_polarity"`
	DominantPolarity string         `json:"dominant_polarity"`
	Trend            string         `json:"trend"` // "rising", "falling", "stable"
}

// EscalationRule flags a burst of matching entries. Category and Polarity
// filter entries when set.
type EscalationRule struct {
	ID          string        `json:"id"`
	Category    string        `json:"category"`
	Polarity    string        `json:"polarity"`
	Count       int           `json:"count"`
	Within      time.Duration `json:"-"`
	Description string        `json:"description"`
}

// Escalation is a rule that fired, with the span of the entries that tripped it.
type Escalation struct {
	Rule     EscalationRule `json:"rule"`
	Count    int            `json:"count"`
	Earliest time.Time      `json:"earliest"`
	Latest   time.Time      `json:"latest"`
}

// Summary describes the activity of a session (or of all sessions) in a window.
type Summary struct {
	SessionID   string                     `json:"session_id,omitempty"`
	Since       time.Time                  `json:"since"`
	Until       time.Time                  `json:"until"`
	Categories  map[string]CategorySummary `json:"categories"`
	Health      string                     `json:"health"` // "healthy", "mixed", "attention"
	Reason      string                     `json:"reason"`
	Escalations []Escalation               `json:"escalations"`
}

// DefaultEscalations are evaluated by Summarize.
var DefaultEscalations = []EscalationRule{
	{
		ID:          "repeated_step_failures",
		Category:    "workflow",
		Polarity:    "negative",
		Count:       3,
		Within:      24 * time.Hour,
		Description: "A workflow step failed three times within a day",
	},
	{
		ID:          "rejection_run",
		Category:    "approval",
		Polarity:    "negative",
		Count:       5,
		Within:      7 * 24 * time.Hour,
		Description: "Five or more timeoff requests rejected within a week",
	},
}

// Summarize aggregates entries falling in [since, until] against rules.
func Summarize(entries []Entry, sessionID string, since, until time.Time, rules []EscalationRule) Summary {
	var inWindow []Entry
	for _, e := range entries {
		if e.OccurredAt.Before(since) || e.OccurredAt.After(until) {
			continue
		}
		inWindow = append(inWindow, e)
	}

	categories := make(map[string]*CategorySummary)
	for _, e := range inWindow {
		cs, ok := categories[e.Category]
		if !ok {
			cs = &CategorySummary{
				Category:   e.Category,
				ByWeight:   make(map[string]int),
				ByPolarity: make(map[string]int),
			}
			categories[e.Category] = cs
		}
		cs.Count++
		cs.ByWeight[e.Weight]++
		cs.ByPolarity[e.Polarity]++
	}

	result := make(map[string]CategorySummary, len(categories))
	for cat, cs := range categories {
		cs.DominantPolarity = dominantPolarity(cs.ByPolarity)
		cs.Trend = trend(inWindow, cat, since, until)
		result[cat] = *cs
	}

	escalations := Escalate(inWindow, until, rules)
	health, reason := assessHealth(result, escalations)
	return Summary{
		SessionID:   sessionID,
		Since:       since,
		Until:       until,
		Categories:  result,
		Health:      health,
		Reason:      reason,
		Escalations: escalations,
	}
}

// Escalate returns the rules that fire for entries in the window ending at now.
func Escalate(entries []Entry, now time.Time, rules []EscalationRule) []Escalation {
	out := []Escalation{}
	for _, rule := range rules {
		if es, ok := evaluate(rule, entries, now); ok {
			out = append(out, es)
		}
	}
	return out
}

func evaluate(rule EscalationRule, entries []Entry, now time.Time) (Escalation, bool) {
	start := now.Add(-rule.Within)
	var matching []Entry
	for _, e := range entries {
		if e.OccurredAt.Before(start) {
			continue
		}
		if rule.Category != "" && e.Category != rule.Category {
			continue
		}
		if rule.Polarity != "" && e.Polarity != rule.Polarity {
			continue
		}
		matching = append(matching, e)
	}
	if rule.Count <= 0 || len(matching) < rule.Count {
		return Escalation{}, false
	}
	sort.Slice(matching, func(i, j int) bool {
		return matching[i].OccurredAt.Before(matching[j].OccurredAt)
	})
	return Escalation{
		Rule:     rule,
		Count:    len(matching),
		Earliest: matching[0].OccurredAt,
		Latest:   matching[len(matching)-1].OccurredAt,
	}, true
}

// dominantPolarity returns the most frequent polarity, ties broken by name.
func dominantPolarity(byPolarity map[string]int) string {
	best, bestCount := "", 0
	for p, c := range byPolarity {
		if c > bestCount || (c == bestCount && p < best) {
			best, bestCount = p, c
		}
	}
	return best
}

// trend compares volume in the first and second half of the window.
func trend(entries []Entry, category string, since, until time.Time) string {
	mid := since.Add(until.Sub(since) / 2)
	var first, second int
	for _, e := range entries {
		if e.Category != category {
			continue
		}
		if e.OccurredAt.Before(mid) {
			first++
		} else {
			second++
		}
	}
	switch {
	case second > first+1:
		return "rising"
	case first > second+1:
		return "falling"
	default:
		return "stable"
	}
}

func assessHealth(categories map[string]CategorySummary, escalations []Escalation) (string, string) {
	if len(escalations) > 0 {
		return "attention", fmt.Sprintf("Escalation: %s", escalations[0].Rule.Description)
	}
	var negative, positive int
	for _, cs := range categories {
		negative += cs.ByPolarity["negative"]
		positive += cs.ByPolarity["positive"]
	}
	if negative > positive {
		return "mixed", "More failures and rejections than completions."
	}
	return "healthy", "Activity is predominantly positive or neutral."
}

// maxSummaryEntries bounds how many entries Collect pulls for one summary.
const maxSummaryEntries = 5000

// Collect pages through store until opts is exhausted or the cap is reached.
func Collect(ctx context.Context, store Store, opts QueryOptions) ([]Entry, error) {
	opts.Limit = 500
	var out []Entry
	for {
		page, err := store.Query(ctx, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Entries...)
		if page.NextCursor == "" || len(out) >= maxSummaryEntries {
			return out, nil
		}
		opts.Cursor = page.NextCursor
	}
}
