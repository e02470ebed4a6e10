// Package approval is the review queue for pending timeoff requests of a
// period. Every accepted mutation is followed by a full re-fetch; the queue
// never patches its list locally.
package approval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mfperdi/parishliturgyplanner/internal/event"
	"github.com/mfperdi/parishliturgyplanner/internal/remote"
	"github.com/mfperdi/parishliturgyplanner/internal/workflow"
)

// Kind classifies a request as deny ("not available") or allow ("only
// available").
type Kind string

const (
	KindNotAvailable  Kind = "not_available"
	KindOnlyAvailable Kind = "only_available"
)

// Item is one pending request. DataIndex is the external row handle.
type Item struct {
	DataIndex     int    `json:"dataIndex"`
	Name          string `json:"name"`
	Kind          Kind   `json:"kind"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	Notes         string `json:"notes,omitempty"`
	ReviewerNotes string `json:"reviewerNotes,omitempty"`
}

// Backend is the external approval operation set.
type Backend interface {
	ListPending(ctx context.Context, period workflow.Period) ([]Item, error)
	Approve(ctx context.Context, dataIndex int, notes string) error
	Reject(ctx context.Context, dataIndex int, notes string) error
	// BulkApproveClean approves every request the backend considers
	// unambiguous and returns how many it approved.
	BulkApproveClean(ctx context.Context) (int, error)
}

// CountFunc receives the outstanding count after every successful fetch.
type CountFunc func(ctx context.Context, period workflow.Period, n int)

var (
	ErrNoPeriod         = errors.New("no period fetched")
	ErrUnknownItem      = errors.New("item is not in the queue")
	ErrItemBusy         = errors.New("item has an action in flight")
	ErrBulkBusy         = errors.New("bulk approval in flight")
	ErrRejectNotStarted = errors.New("reject was not started for this item")
)

// ItemView is an item plus its action state.
type ItemView struct {
	Item
	Busy      bool `json:"busy"`
	Rejecting bool `json:"rejecting"`
}

// Queue holds the visible pending items of one period.
type Queue struct {
	backend Backend
	onCount CountFunc
	pub     event.Publisher
	log     zerolog.Logger

	mu        sync.Mutex
	period    workflow.Period
	items     []Item
	busy      map[int]bool
	rejecting map[int]bool
	bulk      bool
}

// NewQueue creates an empty queue. onCount may be nil.
func NewQueue(backend Backend, onCount CountFunc, pub event.Publisher, log zerolog.Logger) *Queue {
	if pub == nil {
		pub = event.Nop
	}
	return &Queue{
		backend:   backend,
		onCount:   onCount,
		pub:       pub,
		log:       log,
		busy:      make(map[int]bool),
		rejecting: make(map[int]bool),
	}
}

// Fetch loads the pending items for period and reports the count.
func (q *Queue) Fetch(ctx context.Context, period workflow.Period) ([]Item, error) {
	items, err := q.backend.ListPending(ctx, period)
	if err != nil {
		q.log.Warn().Err(err).Str("period", string(period)).Msg("approval: fetch failed")
		return nil, remote.Wrap("listPendingApprovals", err)
	}

	q.mu.Lock()
	if q.period != period {
		q.rejecting = make(map[int]bool)
	}
	q.period = period
	q.items = append([]Item(nil), items...)
	visible := make(map[int]bool, len(items))
	for _, it := range items {
		visible[it.DataIndex] = true
	}
	for idx := range q.rejecting {
		if !visible[idx] {
			delete(q.rejecting, idx)
		}
	}
	q.mu.Unlock()

	if q.onCount != nil {
		q.onCount(ctx, period, len(items))
	}
	q.pub.Publish(ctx, event.NewApprovalsFetched(event.ApprovalsFetchedPayload{Period: string(period), Pending: len(items)}))
	return append([]Item(nil), items...), nil
}

// Period returns the period of the last fetch.
func (q *Queue) Period() workflow.Period {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.period
}

// Items returns the visible items with their action state.
func (q *Queue) Items() []ItemView {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]ItemView, len(q.items))
	for i, it := range q.items {
		out[i] = ItemView{Item: it, Busy: q.busy[it.DataIndex] || q.bulk, Rejecting: q.rejecting[it.DataIndex]}
	}
	return out
}

// BulkInFlight reports whether a bulk approval is running.
func (q *Queue) BulkInFlight() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.bulk
}

// Approve approves an item with an empty note, then refreshes.
func (q *Queue) Approve(ctx context.Context, dataIndex int) error {
	if err := q.begin(dataIndex, false); err != nil {
		return err
	}
	err := q.backend.Approve(ctx, dataIndex, "")
	q.end(dataIndex)
	if err != nil {
		q.log.Warn().Err(err).Int("data_index", dataIndex).Msg("approval: approve failed")
		return remote.Wrap("approveItem", err)
	}
	q.publishDecision(ctx, dataIndex, "approved", "", 0)
	return q.refreshAfterWrite(ctx)
}

// StartReject opens the note capture for an item.
func (q *Queue) StartReject(dataIndex int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.visibleLocked(dataIndex) {
		return fmt.Errorf("item %d: %w", dataIndex, ErrUnknownItem)
	}
	q.rejecting[dataIndex] = true
	return nil
}

// CancelReject closes the note capture without submitting.
func (q *Queue) CancelReject(dataIndex int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.rejecting, dataIndex)
}

// ConfirmReject submits the rejection with the captured note, then
// refreshes. On failure the note capture stays open for a retry.
func (q *Queue) ConfirmReject(ctx context.Context, dataIndex int, note string) error {
	if err := q.begin(dataIndex, true); err != nil {
		return err
	}
	err := q.backend.Reject(ctx, dataIndex, note)
	q.end(dataIndex)
	if err != nil {
		q.log.Warn().Err(err).Int("data_index", dataIndex).Msg("approval: reject failed")
		return remote.Wrap("rejectItem", err)
	}

	q.mu.Lock()
	delete(q.rejecting, dataIndex)
	q.mu.Unlock()

	q.publishDecision(ctx, dataIndex, "rejected", note, 0)
	return q.refreshAfterWrite(ctx)
}

// BulkApproveClean asks the backend to approve every unambiguous item, then
// refreshes. The queue does no filtering of its own. It does not start while
// an item action is in flight.
func (q *Queue) BulkApproveClean(ctx context.Context) (int, error) {
	q.mu.Lock()
	if q.period == "" {
		q.mu.Unlock()
		return 0, ErrNoPeriod
	}
	if q.bulk {
		q.mu.Unlock()
		return 0, ErrBulkBusy
	}
	if len(q.busy) > 0 {
		q.mu.Unlock()
		return 0, ErrItemBusy
	}
	q.bulk = true
	q.mu.Unlock()

	n, err := q.backend.BulkApproveClean(ctx)

	q.mu.Lock()
	q.bulk = false
	q.mu.Unlock()
	if err != nil {
		q.log.Warn().Err(err).Msg("approval: bulk approve failed")
		return 0, remote.Wrap("bulkApproveClean", err)
	}
	q.publishDecision(ctx, -1, "bulk_approved", "", n)
	return n, q.refreshAfterWrite(ctx)
}

// refreshAfterWrite re-fetches the current period. It runs only after the
// mutation it follows has returned.
func (q *Queue) refreshAfterWrite(ctx context.Context) error {
	_, err := q.Fetch(ctx, q.Period())
	return err
}

// begin marks an item busy. needReject requires an open note capture.
func (q *Queue) begin(dataIndex int, needReject bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.period == "" {
		return ErrNoPeriod
	}
	if !q.visibleLocked(dataIndex) {
		return fmt.Errorf("item %d: %w", dataIndex, ErrUnknownItem)
	}
	if needReject && !q.rejecting[dataIndex] {
		return fmt.Errorf("item %d: %w", dataIndex, ErrRejectNotStarted)
	}
	if q.bulk {
		return ErrBulkBusy
	}
	if q.busy[dataIndex] {
		return fmt.Errorf("item %d: %w", dataIndex, ErrItemBusy)
	}
	q.busy[dataIndex] = true
	return nil
}

func (q *Queue) end(dataIndex int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.busy, dataIndex)
}

func (q *Queue) visibleLocked(dataIndex int) bool {
	for _, it := range q.items {
		if it.DataIndex == dataIndex {
			return true
		}
	}
	return false
}

func (q *Queue) publishDecision(ctx context.Context, dataIndex int, decision, note string, count int) {
	q.pub.Publish(ctx, event.NewApprovalDecided(event.ApprovalDecidedPayload{
		Period:    string(q.Period()),
		DataIndex: dataIndex,
		Decision:  decision,
		Notes:     note,
		Count:     count,
	}))
}
