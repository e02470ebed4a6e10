package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mfperdi/parishliturgyplanner/internal/approval"
	"github.com/mfperdi/parishliturgyplanner/internal/fieldtype"
	"github.com/mfperdi/parishliturgyplanner/internal/options"
	"github.com/mfperdi/parishliturgyplanner/internal/record"
	"github.com/mfperdi/parishliturgyplanner/internal/remote"
	"github.com/mfperdi/parishliturgyplanner/internal/schema"
	"github.com/mfperdi/parishliturgyplanner/internal/workflow"
)

// Collections the local backend works on.
const (
	TimeoffsCollection   = "Timeoffs"
	VolunteersCollection = "Volunteers"
)

// Timeoff statuses as stored in the status column.
const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

const bulkApprovedNote = "Bulk approved"

// Local implements the approval and validation procedures in process over a
// record store. Generation steps are not available locally.
type Local struct {
	store record.Store
	reg   *schema.Registry
	opts  *options.Resolver
	log   zerolog.Logger
}

// NewLocal creates a Local backend.
func NewLocal(store record.Store, reg *schema.Registry, log zerolog.Logger) *Local {
	return &Local{
		store: store,
		reg:   reg,
		opts:  options.NewResolver(store, log),
		log:   log,
	}
}

// timeoffCols holds the positions of the timeoff columns the backend uses.
type timeoffCols struct {
	name, kind, start, end, notes, status, reviewer int
	width                                            int
}

func (l *Local) timeoffCols() (timeoffCols, error) {
	e, ok := l.reg.Get(TimeoffsCollection)
	if !ok {
		return timeoffCols{}, remote.Failf("listPendingApprovals", "no %s schema", TimeoffsCollection)
	}
	var c timeoffCols
	var missing []string
	for _, m := range []struct {
		key string
		dst *int
	}{
		{"volunteerName", &c.name},
		{"type", &c.kind},
		{"startDate", &c.start},
		{"endDate", &c.end},
		{"notes", &c.notes},
		{"status", &c.status},
		{"reviewerNotes", &c.reviewer},
	} {
		i, ok := e.Index(m.key)
		if !ok {
			missing = append(missing, m.key)
		}
		*m.dst = i
	}
	if len(missing) > 0 {
		return timeoffCols{}, remote.Failf("listPendingApprovals", "%s schema is missing %v", TimeoffsCollection, missing)
	}
	c.width = e.Width()
	return c, nil
}

func cell(row record.Values, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return fieldtype.Stringify(row[i])
}

func isPending(row record.Values, c timeoffCols) bool {
	s := cell(row, c.status)
	return s == "" || s == StatusPending
}

// dateRange parses a request's range. ok is false when either date is
// unparseable or the range is reversed.
func dateRange(row record.Values, c timeoffCols) (start, end time.Time, ok bool) {
	s := fieldtype.ParseDate(cell(row, c.start))
	e := fieldtype.ParseDate(cell(row, c.end))
	if s == "" || e == "" {
		return time.Time{}, time.Time{}, false
	}
	start, _ = time.Parse(fieldtype.DateLayout, s)
	end, _ = time.Parse(fieldtype.DateLayout, e)
	return start, end, !end.Before(start)
}

// overlaps reports whether a request touches the period's month. Requests
// with unusable dates are always shown so the operator can deal with them.
func overlaps(row record.Values, c timeoffCols, p workflow.Period) bool {
	start, end, ok := dateRange(row, c)
	if !ok {
		return true
	}
	first := p.Month()
	last := first.AddDate(0, 1, -1)
	return !end.Before(first) && !start.After(last)
}

func (l *Local) ListPending(ctx context.Context, period workflow.Period) ([]approval.Item, error) {
	c, err := l.timeoffCols()
	if err != nil {
		return nil, err
	}
	rows, err := l.store.Read(ctx, TimeoffsCollection)
	if err != nil {
		return nil, remote.Wrap("listPendingApprovals", err)
	}

	var out []approval.Item
	for i, row := range rows {
		if !isPending(row, c) || !overlaps(row, c, period) {
			continue
		}
		kind := approval.KindNotAvailable
		if cell(row, c.kind) == "Only Available" {
			kind = approval.KindOnlyAvailable
		}
		out = append(out, approval.Item{
			DataIndex:     i,
			Name:          cell(row, c.name),
			Kind:          kind,
			StartDate:     cell(row, c.start),
			EndDate:       cell(row, c.end),
			Notes:         cell(row, c.notes),
			ReviewerNotes: cell(row, c.reviewer),
		})
	}
	return out, nil
}

func (l *Local) Approve(ctx context.Context, dataIndex int, notes string) error {
	return l.decide(ctx, "approveItem", dataIndex, StatusApproved, notes)
}

func (l *Local) Reject(ctx context.Context, dataIndex int, notes string) error {
	return l.decide(ctx, "rejectItem", dataIndex, StatusRejected, notes)
}

func (l *Local) decide(ctx context.Context, op string, dataIndex int, status, notes string) error {
	c, err := l.timeoffCols()
	if err != nil {
		return err
	}
	rows, err := l.store.Read(ctx, TimeoffsCollection)
	if err != nil {
		return remote.Wrap(op, err)
	}
	if dataIndex < 0 || dataIndex >= len(rows) {
		return remote.Failf(op, "Timeoff row %d does not exist", dataIndex)
	}
	row := rows[dataIndex]
	if !isPending(row, c) {
		return remote.Failf(op, "Timeoff row %d is already %s", dataIndex, cell(row, c.status))
	}
	if err := l.store.Update(ctx, TimeoffsCollection, dataIndex, withDecision(row, c, status, notes)); err != nil {
		return remote.Wrap(op, err)
	}
	l.log.Info().Str("op", op).Int("data_index", dataIndex).Msg("automation: timeoff reviewed")
	return nil
}

func withDecision(row record.Values, c timeoffCols, status, notes string) record.Values {
	out := make(record.Values, c.width)
	copy(out, row)
	for i := len(row); i < c.width; i++ {
		out[i] = ""
	}
	out[c.status] = status
	out[c.reviewer] = notes
	return out
}

// BulkApproveClean approves every pending request whose volunteer is known
// and whose date range is valid and ordered.
func (l *Local) BulkApproveClean(ctx context.Context) (int, error) {
	const op = "bulkApproveClean"
	c, err := l.timeoffCols()
	if err != nil {
		return 0, err
	}
	known, err := l.volunteerNames(ctx)
	if err != nil {
		return 0, remote.Wrap(op, err)
	}
	rows, err := l.store.Read(ctx, TimeoffsCollection)
	if err != nil {
		return 0, remote.Wrap(op, err)
	}

	n := 0
	for i, row := range rows {
		if !isPending(row, c) || !known[cell(row, c.name)] {
			continue
		}
		if _, _, ok := dateRange(row, c); !ok {
			continue
		}
		if err := l.store.Update(ctx, TimeoffsCollection, i, withDecision(row, c, StatusApproved, bulkApprovedNote)); err != nil {
			return n, remote.Wrap(op, err)
		}
		n++
	}
	l.log.Info().Int("approved", n).Msg("automation: bulk approval")
	return n, nil
}

func (l *Local) volunteerNames(ctx context.Context) (map[string]bool, error) {
	vol, ok := l.reg.Get(VolunteersCollection)
	if !ok {
		return nil, fmt.Errorf("no %s schema", VolunteersCollection)
	}
	col, ok := vol.Index("fullName")
	if !ok {
		return nil, fmt.Errorf("%s schema has no fullName", VolunteersCollection)
	}
	rows, err := l.store.Read(ctx, VolunteersCollection)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(rows))
	for _, r := range rows {
		if n := cell(r, col); n != "" {
			names[n] = true
		}
	}
	return names, nil
}

// ── workflow.Actions ────────────────────────────────────────────────────────

func notConfigured(op string) error {
	return remote.Failf(op, "%s is not available without an automation endpoint", op)
}

func (l *Local) GenerateCalendar(context.Context) error { return notConfigured("generateCalendar") }

func (l *Local) GenerateSchedule(context.Context, workflow.Period) error {
	return notConfigured("generateSchedule")
}

func (l *Local) SyncForm(context.Context, workflow.Period) error { return notConfigured("syncForm") }

func (l *Local) AutoAssign(context.Context, workflow.Period) error {
	return notConfigured("autoAssign")
}

var (
	_ approval.Backend = (*Local)(nil)
	_ workflow.Actions = (*Local)(nil)
)
