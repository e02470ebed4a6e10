// Package settings tracks edits to the key/value settings collection and
// reports only the rows whose value actually changed.
package settings

import (
	"sort"

	"github.com/mfperdi/parishliturgyplanner/internal/fieldtype"
	"github.com/mfperdi/parishliturgyplanner/internal/record"
)

// Row is one {setting, value} pair.
type Row struct {
	Setting string `json:"setting"`
	Value   string `json:"value"`
}

// RowsFromRecords converts settings records to rows. Missing columns are
// read as empty strings.
func RowsFromRecords(records []record.Values) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		if len(r) > 0 {
			rows[i].Setting = fieldtype.Stringify(r[0])
		}
		if len(r) > 1 {
			rows[i].Value = fieldtype.Stringify(r[1])
		}
	}
	return rows
}

// Update is one changed row to write back.
type Update struct {
	Row    int           `json:"row"`
	Values record.Values `json:"values"`
}

// ChangedRows returns, in ascending order, every row index in live whose
// value differs from baseline.
func ChangedRows(baseline, live map[int]string) []int {
	var changed []int
	for i, v := range live {
		if b, ok := baseline[i]; !ok || b != v {
			changed = append(changed, i)
		}
	}
	sort.Ints(changed)
	return changed
}

// Tracker holds a baseline snapshot and the operator's live edits.
type Tracker struct {
	rows     []Row
	baseline map[int]string
	live     map[int]string
}

// NewTracker starts tracking against rows.
func NewTracker(rows []Row) *Tracker {
	t := &Tracker{}
	t.Rebaseline(rows)
	return t
}

// Rebaseline replaces the baseline and drops all edits. Call it after the
// external save is confirmed and the rows have been re-read.
func (t *Tracker) Rebaseline(rows []Row) {
	t.rows = append([]Row(nil), rows...)
	t.baseline = make(map[int]string, len(rows))
	t.live = make(map[int]string, len(rows))
	for i, r := range rows {
		t.baseline[i] = r.Value
		t.live[i] = r.Value
	}
}

// Rows returns the baseline rows with live values applied.
func (t *Tracker) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = Row{Setting: r.Setting, Value: t.live[i]}
	}
	return out
}

// Set records a live edit. Indexes outside the baseline are ignored.
func (t *Tracker) Set(row int, value string) bool {
	if _, ok := t.baseline[row]; !ok {
		return false
	}
	t.live[row] = value
	return true
}

// ChangedRows returns the edited rows in ascending order.
func (t *Tracker) ChangedRows() []int {
	return ChangedRows(t.baseline, t.live)
}

// Commit returns the updates for every changed row in ascending order.
// Edits are kept until Rebaseline.
func (t *Tracker) Commit() []Update {
	changed := t.ChangedRows()
	out := make([]Update, 0, len(changed))
	for _, i := range changed {
		out = append(out, Update{Row: i, Values: record.Values{t.rows[i].Setting, t.live[i]}})
	}
	return out
}
