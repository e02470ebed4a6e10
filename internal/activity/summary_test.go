package activity

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func entryAt(id, category, polarity string, at time.Time) Entry {
	return Entry{EventID: id, Category: category, Weight: "minor", Polarity: polarity, OccurredAt: at}
}

func TestSummarize_CountsAndTrend(t *testing.T) {
	until := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	since := until.Add(-10 * time.Hour)
	entries := []Entry{
		entryAt("1", "record", "neutral", since.Add(1*time.Hour)),
		entryAt("2", "record", "neutral", since.Add(6*time.Hour)),
		entryAt("3", "record", "neutral", since.Add(7*time.Hour)),
		entryAt("4", "record", "neutral", since.Add(8*time.Hour)),
		entryAt("5", "workflow", "positive", since.Add(9*time.Hour)),
		entryAt("old", "record", "negative", since.Add(-time.Hour)),
	}

	s := Summarize(entries, "s-1", since, until, DefaultEscalations)
	rec, ok := s.Categories["record"]
	if !ok {
		t.Fatal("record category missing")
	}
	if rec.Count != 4 {
		t.Errorf("record count = %d, want 4", rec.Count)
	}
	if rec.Trend != "rising" {
		t.Errorf("record trend = %q, want rising", rec.Trend)
	}
	if rec.DominantPolarity != "neutral" {
		t.Errorf("dominant polarity = %q, want neutral", rec.DominantPolarity)
	}
	if s.Health != "healthy" {
		t.Errorf("health = %q, want healthy", s.Health)
	}
	if len(s.Escalations) != 0 {
		t.Errorf("escalations = %d, want 0", len(s.Escalations))
	}
}

func TestSummarize_RepeatedFailuresEscalate(t *testing.T) {
	until := time.Now()
	since := until.Add(-48 * time.Hour)
	entries := []Entry{
		entryAt("1", "workflow", "negative", until.Add(-3*time.Hour)),
		entryAt("2", "workflow", "negative", until.Add(-2*time.Hour)),
		entryAt("3", "workflow", "negative", until.Add(-1*time.Hour)),
		entryAt("4", "workflow", "negative", until.Add(-30*time.Hour)),
	}

	s := Summarize(entries, "", since, until, DefaultEscalations)
	if s.Health != "attention" {
		t.Fatalf("health = %q, want attention", s.Health)
	}
	if len(s.Escalations) != 1 {
		t.Fatalf("escalations = %d, want 1", len(s.Escalations))
	}
	es := s.Escalations[0]
	if es.Rule.ID != "repeated_step_failures" {
		t.Errorf("rule = %q", es.Rule.ID)
	}
	if es.Count != 3 {
		t.Errorf("count = %d, want 3 (the 30h-old failure is outside the rule window)", es.Count)
	}
	if !es.Earliest.Before(es.Latest) {
		t.Errorf("earliest %v not before latest %v", es.Earliest, es.Latest)
	}
}

func TestSummarize_MixedWhenNegativeDominates(t *testing.T) {
	until := time.Now()
	since := until.Add(-time.Hour)
	entries := []Entry{
		entryAt("1", "approval", "negative", until.Add(-10*time.Minute)),
		entryAt("2", "approval", "negative", until.Add(-5*time.Minute)),
		entryAt("3", "approval", "positive", until.Add(-1*time.Minute)),
	}
	s := Summarize(entries, "", since, until, DefaultEscalations)
	if s.Health != "mixed" {
		t.Errorf("health = %q, want mixed", s.Health)
	}
}

func TestCollect_PagesThroughStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Now().Add(-time.Hour)
	var entries []Entry
	for i := range 620 {
		entries = append(entries, entryAt(fmt.Sprintf("e-%d", i), "record", "neutral", base.Add(time.Duration(i)*time.Second)))
	}
	if err := store.WriteEntries(ctx, entries); err != nil {
		t.Fatal(err)
	}

	got, err := Collect(ctx, store, DefaultQueryOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 620 {
		t.Errorf("collected %d entries, want 620", len(got))
	}
}
